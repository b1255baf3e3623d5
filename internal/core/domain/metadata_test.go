package domain

import "testing"

func TestSafeFilenameAcceptsPlainNames(t *testing.T) {
	cases := []string{
		"invoice-2026-03.pdf",
		"Quarterly Report Q1.pdf",
		"steuer_2025.pdf",
	}
	for _, name := range cases {
		if got := SafeFilename(name); got != name {
			t.Fatalf("SafeFilename(%q) = %q, want unchanged", name, got)
		}
	}
}

func TestSafeFilenameRejectsTraversal(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"../../etc/passwd",
		"..\\windows\\system32",
		"/etc/shadow",
		"\\\\server\\share\\doc.pdf",
		"C:\\Users\\doc.pdf",
		"reports/2026/invoice.pdf",
		"invoice..pdf",
	}
	for _, name := range cases {
		if got := SafeFilename(name); got != "" {
			t.Fatalf("SafeFilename(%q) = %q, want empty", name, got)
		}
	}
}

func TestTaskClass(t *testing.T) {
	cases := map[TaskType]string{
		TaskProcess:    "default",
		TaskOCR:        "ai",
		TaskMetadata:   "ai",
		TaskDistribute: "default",
		TaskUpload:     "default",
		TaskConvert:    "default",
	}
	for taskType, want := range cases {
		task := Task{Type: taskType}
		if got := task.TaskClass(); got != want {
			t.Fatalf("TaskClass(%s) = %s, want %s", taskType, got, want)
		}
	}
}

func TestAllowedMailMime(t *testing.T) {
	allowed := []string{"application/pdf", "text/plain", "text/csv",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
	for _, mime := range allowed {
		if !AllowedMailMime(mime) {
			t.Fatalf("AllowedMailMime(%q) = false, want true", mime)
		}
	}

	rejected := []string{"image/png", "image/jpeg", "application/zip", "text/html", ""}
	for _, mime := range rejected {
		if AllowedMailMime(mime) {
			t.Fatalf("AllowedMailMime(%q) = true, want false", mime)
		}
	}
}
