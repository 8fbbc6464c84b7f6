package tokenizer

import (
	"testing"
)

func TestNewTikToken_WhenValidEncoding_ShouldReturnTokenizer(t *testing.T) {
	tok, err := NewTikToken(DefaultEncoding)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tok == nil {
		t.Fatal("expected non-nil tokenizer")
	}
}

func TestNewTikToken_WhenInvalidEncoding_ShouldReturnError(t *testing.T) {
	tok, err := NewTikToken("totally_invalid_encoding_xyz")
	if err == nil {
		t.Fatal("expected error for invalid encoding")
	}
	if tok != nil {
		t.Fatal("expected nil tokenizer on error")
	}
}

func TestTikToken_CountTokens_WhenEmptyString_ShouldReturnZero(t *testing.T) {
	tok, err := NewTikToken(DefaultEncoding)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	count, err := tok.CountTokens("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 tokens for empty string, got %d", count)
	}
}

func TestTikToken_CountTokens_ShouldScaleWithTextLength(t *testing.T) {
	tok, err := NewTikToken(DefaultEncoding)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	short, err := tok.CountTokens("hello")
	if err != nil {
		t.Fatal(err)
	}
	long, err := tok.CountTokens("hello world, this is a much longer sentence about Ruby deployments")
	if err != nil {
		t.Fatal(err)
	}
	if short <= 0 {
		t.Errorf("expected positive count for non-empty text, got %d", short)
	}
	if long <= short {
		t.Errorf("expected longer text to have more tokens: short=%d long=%d", short, long)
	}
}
