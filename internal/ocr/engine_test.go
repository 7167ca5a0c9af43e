package ocr

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine returns canned text after an optional delay.
type fakeEngine struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, _ image.Image) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeEngine) Close() error { return nil }

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 8, 8))
}

func TestRecognizeWithDeadlineCompletes(t *testing.T) {
	eng := &fakeEngine{text: "recognized"}

	text, err := RecognizeWithDeadline(context.Background(), eng, testImage(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "recognized", text)
}

func TestRecognizeWithDeadlineTimesOut(t *testing.T) {
	eng := &fakeEngine{text: "late", delay: 500 * time.Millisecond}

	start := time.Now()
	_, err := RecognizeWithDeadline(context.Background(), eng, testImage(), 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "must not wait for the slow engine")
}

func TestRecognizeWithDeadlineZeroTimeout(t *testing.T) {
	eng := &fakeEngine{text: "direct"}

	text, err := RecognizeWithDeadline(context.Background(), eng, testImage(), 0)
	require.NoError(t, err)
	assert.Equal(t, "direct", text)
	assert.Equal(t, 1, eng.calls)
}

func TestRecognizeWithDeadlinePropagatesEngineError(t *testing.T) {
	wantErr := errors.New("recognition backend unavailable")
	eng := &fakeEngine{err: wantErr}

	_, err := RecognizeWithDeadline(context.Background(), eng, testImage(), time.Second)
	assert.ErrorIs(t, err, wantErr)
}

func TestRecognizeWithDeadlineCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := &fakeEngine{text: "never", delay: time.Second}
	_, err := RecognizeWithDeadline(ctx, eng, testImage(), time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRecognizeWithDeadlineNormalizesText(t *testing.T) {
	// "Cafe" with a combining acute accent; NFC folds it to a single rune.
	decomposed := "Café"
	composed := "Café"

	eng := &fakeEngine{text: decomposed}
	text, err := RecognizeWithDeadline(context.Background(), eng, testImage(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, composed, text)

	eng = &fakeEngine{text: decomposed}
	text, err = RecognizeWithDeadline(context.Background(), eng, testImage(), 0)
	require.NoError(t, err)
	assert.Equal(t, composed, text)
}

// overlapEngine serves one slow call then fast ones, so a timed-out attempt
// is still in flight when the next call arrives.
type overlapEngine struct {
	mu    sync.Mutex
	calls int
}

func (e *overlapEngine) Name() string { return "overlap" }

func (e *overlapEngine) Recognize(ctx context.Context, _ image.Image) (string, error) {
	e.mu.Lock()
	call := e.calls
	e.calls++
	e.mu.Unlock()

	if call == 0 {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-ctx.Done():
		}
		return "slow", nil
	}
	return "fast", nil
}

func (e *overlapEngine) Close() error { return nil }

func TestRecognizeWithDeadlineEngineReuseAfterTimeout(t *testing.T) {
	eng := &overlapEngine{}

	_, err := RecognizeWithDeadline(context.Background(), eng, testImage(), 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	text, err := RecognizeWithDeadline(context.Background(), eng, testImage(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fast", text)
}

func TestNewTesseractDefaults(t *testing.T) {
	eng := NewTesseract("")
	assert.Equal(t, "tesseract", eng.Name())
	assert.Equal(t, "eng", eng.language)
	assert.NoError(t, eng.Close())
}
