package ollama

import "testing"

func TestExtractJSONBlockFencedJSON(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"quality_score\": 90}\n```\nHope that helps."
	if got := ExtractJSONBlock(raw); got != `{"quality_score": 90}` {
		t.Fatalf("ExtractJSONBlock() = %q", got)
	}
}

func TestExtractJSONBlockGenericFence(t *testing.T) {
	raw := "```\n{\"preferred\": \"ocr\"}\n```"
	if got := ExtractJSONBlock(raw); got != `{"preferred": "ocr"}` {
		t.Fatalf("ExtractJSONBlock() = %q", got)
	}
}

func TestExtractJSONBlockGenericFenceNonJSONFallsThrough(t *testing.T) {
	raw := "```\nsome code\n```\ntrailing {\"score\": 1} text"
	if got := ExtractJSONBlock(raw); got != `{"score": 1}` {
		t.Fatalf("ExtractJSONBlock() = %q", got)
	}
}

func TestExtractJSONBlockBraceScan(t *testing.T) {
	raw := `The verdict is {"is_good_quality": true, "nested": {"a": 1}} as requested.`
	if got := ExtractJSONBlock(raw); got != `{"is_good_quality": true, "nested": {"a": 1}}` {
		t.Fatalf("ExtractJSONBlock() = %q", got)
	}
}

func TestExtractJSONBlockNoJSONReturnsInput(t *testing.T) {
	raw := "the model refused to answer"
	if got := ExtractJSONBlock(raw); got != raw {
		t.Fatalf("ExtractJSONBlock() = %q, want input unchanged", got)
	}
}
