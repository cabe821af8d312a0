package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestServiceSave(t *testing.T) {
	svc, err := NewService(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	t.Run("stores file and reports metadata", func(t *testing.T) {
		stored, err := svc.Save(context.Background(), KindChatAttachment, "runsheet.txt", strings.NewReader("cue 12 go"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if !strings.HasPrefix(stored.ID, "blb_") {
			t.Errorf("blob ID = %q, want blb_ prefix", stored.ID)
		}
		if stored.OriginalName != "runsheet.txt" {
			t.Errorf("OriginalName = %q", stored.OriginalName)
		}
		if stored.SizeBytes != int64(len("cue 12 go")) {
			t.Errorf("SizeBytes = %d", stored.SizeBytes)
		}
		if !strings.HasPrefix(stored.StoragePath, "chat_attachment/") {
			t.Errorf("StoragePath = %q", stored.StoragePath)
		}

		f, err := svc.Open(stored.StoragePath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("reading stored blob: %v", err)
		}
		if string(data) != "cue 12 go" {
			t.Errorf("stored content = %q", data)
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := svc.Save(context.Background(), Kind("avatar"), "a.txt", strings.NewReader("x"))
		if !errors.Is(err, ErrInvalidKind) {
			t.Errorf("error = %v, want ErrInvalidKind", err)
		}
	})

	t.Run("rejects executable signatures", func(t *testing.T) {
		_, err := svc.Save(context.Background(), KindChatAttachment, "tool", bytes.NewReader([]byte{0x7f, 'E', 'L', 'F', 0, 0}))
		if !errors.Is(err, ErrExecutableFile) {
			t.Errorf("error = %v, want ErrExecutableFile", err)
		}
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		_, err := svc.Save(context.Background(), KindChatAttachment, "big.bin", strings.NewReader(strings.Repeat("a", 2048)))
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("error = %v, want ErrFileTooLarge", err)
		}
	})

	t.Run("sanitizes path-shaped names", func(t *testing.T) {
		stored, err := svc.Save(context.Background(), KindChatAttachment, "../../etc/passwd", strings.NewReader("harmless"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if stored.OriginalName != "passwd" {
			t.Errorf("OriginalName = %q", stored.OriginalName)
		}
	})
}

func TestResolveStoragePath(t *testing.T) {
	svc, err := NewService(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	for _, bad := range []string{"../outside", "/abs/path", "."} {
		if _, err := svc.resolveStoragePath(bad); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("resolveStoragePath(%q) error = %v, want ErrInvalidPath", bad, err)
		}
	}
}
