package artifact

import (
	"context"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()

	for _, format := range []string{"svg", "png"} {
		if err := s.Put(ctx, id, format, []byte("<"+format+">")); err != nil {
			t.Fatalf("Put(%s) error = %v", format, err)
		}
	}

	got, err := s.Get(ctx, id, "svg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "<svg>" {
		t.Errorf("Get() = %q", got)
	}

	formats, err := s.List(ctx, id)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"png", "svg"}; !reflect.DeepEqual(formats, want) {
		t.Errorf("List() = %v, want %v", formats, want)
	}

	if _, err := s.Get(ctx, id, "pdf"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(pdf) error = %v, want NOT_FOUND", err)
	}

	u, err := s.URL(ctx, id, "svg")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if !strings.Contains(u, ObjectKey(id, "svg")) {
		t.Errorf("URL() = %q does not name the object", u)
	}
}

func TestDirStore(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestDirStoreRejectsBadArgs(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	tests := []struct {
		name, id, format string
	}{
		{"traversal id", "../x", "svg"},
		{"empty format", uuid.NewString(), ""},
		{"dotted format", uuid.NewString(), "svg/../../x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Put(ctx, tt.id, tt.format, nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Put() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestS3Store(t *testing.T) {
	endpoint := os.Getenv("MCBROWSE_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("MCBROWSE_TEST_S3_ENDPOINT not set")
	}
	s, err := NewS3Store(S3Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MCBROWSE_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("MCBROWSE_TEST_S3_SECRET_KEY"),
		Bucket:    "mcbrowse-test",
	})
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestNewS3StoreValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
	}{
		{"no endpoint", S3Config{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{"no keys", S3Config{Endpoint: "localhost:9000", Bucket: "c"}},
		{"no bucket", S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewS3Store(tt.cfg); err == nil {
				t.Error("NewS3Store() error = nil")
			}
		})
	}
}
