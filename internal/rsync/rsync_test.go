package rsync

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestChunkerEngineRoundtrip(t *testing.T) {
	engine := NewEngine()

	t.Run("identical content produces an all-copy delta", func(t *testing.T) {
		content := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 20000)

		sig, err := engine.Signature(strings.NewReader(content))
		if err != nil {
			t.Fatalf("Signature: %v", err)
		}

		delta, err := engine.Delta(sig, strings.NewReader(content))
		if err != nil {
			t.Fatalf("Delta: %v", err)
		}

		var out bytes.Buffer
		if err := engine.Apply(bytes.NewReader([]byte(content)), delta, &out); err != nil {
			t.Fatalf("Apply: %v", err)
		}

		if out.String() != content {
			t.Fatal("applied output does not match original content")
		}

		var decoded struct{ Ops []op }
		if err := json.Unmarshal(delta, &decoded); err != nil {
			t.Fatalf("decode delta: %v", err)
		}
		for i, o := range decoded.Ops {
			if !o.Copy {
				t.Fatalf("op %d is a literal, want only copy ops", i)
			}
		}
	})

	t.Run("full backup against an empty base reconstructs literal content", func(t *testing.T) {
		content := "hello\n"

		sig, err := engine.Signature(strings.NewReader(""))
		if err != nil {
			t.Fatalf("Signature: %v", err)
		}

		delta, err := engine.Delta(sig, strings.NewReader(content))
		if err != nil {
			t.Fatalf("Delta: %v", err)
		}

		var out bytes.Buffer
		if err := engine.Apply(bytes.NewReader(nil), delta, &out); err != nil {
			t.Fatalf("Apply: %v", err)
		}

		if out.String() != content {
			t.Fatalf("got %q, want %q", out.String(), content)
		}
	})

	t.Run("appended content only emits a literal tail", func(t *testing.T) {
		base := strings.Repeat("stable chunk content for boundary alignment\n", 20000)
		updated := base + "a brand new trailing line\n"

		sig, err := engine.Signature(strings.NewReader(base))
		if err != nil {
			t.Fatalf("Signature: %v", err)
		}

		delta, err := engine.Delta(sig, strings.NewReader(updated))
		if err != nil {
			t.Fatalf("Delta: %v", err)
		}

		var out bytes.Buffer
		if err := engine.Apply(bytes.NewReader([]byte(base)), delta, &out); err != nil {
			t.Fatalf("Apply: %v", err)
		}

		if out.String() != updated {
			t.Fatal("applied output does not match updated content")
		}
	})
}
