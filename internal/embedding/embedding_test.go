package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestEmbed_EmptyInput(t *testing.T) {
	c := New("", "test-key", "text-embedding-3-small", 384, true)
	_, err := c.Embed(context.Background(), "", KindQuery)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("got %v, want ErrEmptyInput", err)
	}
}

func TestNormalize_UnitNorm(t *testing.T) {
	v := []float32{3, 4}
	got := normalize(v)

	var sumSq float64
	for _, x := range got {
		sumSq += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sumSq)-1.0) > 1e-6 {
		t.Errorf("normalize did not produce a unit vector, norm=%v", math.Sqrt(sumSq))
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	got := normalize(v)
	for _, x := range got {
		if x != 0 {
			t.Errorf("expected zero vector to stay zero, got %v", got)
		}
	}
}
