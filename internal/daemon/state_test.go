package daemon

import (
	"sync"
	"testing"
)

func TestStateReadWrite(t *testing.T) {
	t.Run("read returns the current value", func(t *testing.T) {
		s := NewState(42)
		if got := Read(s, func(v int) int { return v }); got != 42 {
			t.Fatalf("got %d, want 42", got)
		}
	})

	t.Run("write mutates the stored value", func(t *testing.T) {
		s := NewState([]string{"a"})
		n := Write(s, func(v *[]string) int {
			*v = append(*v, "b")
			return len(*v)
		})
		if n != 2 {
			t.Fatalf("write returned %d, want 2", n)
		}
		got := Read(s, func(v []string) []string { return v })
		if len(got) != 2 || got[1] != "b" {
			t.Fatalf("unexpected state after write: %v", got)
		}
	})

	t.Run("concurrent reads and writes do not race", func(t *testing.T) {
		s := NewState(0)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				Write(s, func(v *int) struct{} { *v++; return struct{}{} })
			}()
			go func() {
				defer wg.Done()
				Read(s, func(v int) int { return v })
			}()
		}
		wg.Wait()
		if got := Read(s, func(v int) int { return v }); got != 50 {
			t.Fatalf("got %d, want 50", got)
		}
	})
}
