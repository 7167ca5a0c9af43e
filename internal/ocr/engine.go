// Package ocr abstracts optical character recognition behind a small engine
// contract. Engine instances are not safe for concurrent use; provision one
// per worker.
package ocr

import (
	"context"
	"errors"
	"image"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrTimeout is returned when recognition does not complete before its
// deadline. A timed-out attempt is not retried within the same request.
var ErrTimeout = errors.New("OCR timed out")

// Engine recognizes text in a single image. A timed-out recognition is
// abandoned, not cancelled, so implementations must tolerate one abandoned
// call still running when the next call arrives; Tesseract satisfies this
// by building a fresh client per call.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// EngineFactory provisions a fresh engine, typically one per pipeline
// worker so concurrent files never share a recognizer instance.
type EngineFactory func() (Engine, error)

// RecognizeWithDeadline races recognition against a timeout and returns the
// recognized text in Unicode NFC form, so combining sequences from the
// recognizer never defeat downstream pattern matching. Whichever finishes
// first wins; on expiry the attempt is reported as ErrTimeout and the
// recognition goroutine is left to drain on its own (see the Engine
// contract).
func RecognizeWithDeadline(ctx context.Context, eng Engine, img image.Image, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		text, err := eng.Recognize(ctx, img)
		if err != nil {
			return "", err
		}
		return norm.NFC.String(text), nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := eng.Recognize(ctx, img)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return "", out.err
		}
		return norm.NFC.String(out.text), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	}
}
