package googleEmbedding

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGetContent(t *testing.T) {
	contents := getContent([]string{"a", "b"})
	if len(contents) != 2 {
		t.Fatalf("got %d contents", len(contents))
	}
	if contents[1].Parts[0].Text != "b" {
		t.Errorf("second content = %q", contents[1].Parts[0].Text)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", genai.APIError{Code: 429}, true},
		{"server error wrapped", fmt.Errorf("call: %w", genai.APIError{Code: 503}), true},
		{"bad request", genai.APIError{Code: 400}, false},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), true},
		{"plain", errors.New("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
