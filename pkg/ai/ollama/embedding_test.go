package ollama

import (
	"context"
	"testing"
)

func TestGenerateEmbeddingEmptyInput(t *testing.T) {
	tests := []struct {
		name      string
		dimension int
		want      int
	}{
		{"configured", 384, 384},
		{"default", 0, defaultDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(Params{EmbeddingDimension: tt.dimension})
			if err != nil {
				t.Fatal(err)
			}

			vec, err := client.GenerateEmbedding(context.Background(), []byte("   "))
			if err != nil {
				t.Fatal(err)
			}
			if len(vec) != tt.want {
				t.Fatalf("expected a zero vector of length %d, got %d", tt.want, len(vec))
			}
		})
	}
}
