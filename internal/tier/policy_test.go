package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invopipe/invopipe/internal/invoice"
)

func TestFreePolicy(t *testing.T) {
	p := Free()

	assert.Equal(t, "free", p.Name)
	assert.Equal(t, 5, p.MaxFilesPerBatch)
	assert.Equal(t, int64(10<<20), p.MaxFileSizeBytes)
	assert.Equal(t, 10, p.MaxPDFPages)
	assert.False(t, p.OCREnabled)

	assert.True(t, p.Allows(invoice.StandardInvoice))
	assert.False(t, p.Allows(invoice.Receipt))
	assert.False(t, p.Allows(invoice.PurchaseOrder))
	assert.False(t, p.Allows(invoice.Contract))
	assert.False(t, p.Allows(invoice.BankStatement))
}

func TestProAndBusinessPolicies(t *testing.T) {
	for _, p := range []Policy{Pro(), Business()} {
		t.Run(p.Name, func(t *testing.T) {
			assert.True(t, p.OCREnabled)
			assert.Positive(t, p.OCRMaxFileSizeBytes)
			assert.Positive(t, p.OCRTimeout)
			for _, dt := range invoice.AllDocumentTypes() {
				assert.True(t, p.Allows(dt), "tier %s should allow %s", p.Name, dt)
			}
		})
	}

	assert.Greater(t, Business().MaxFilesPerBatch, Pro().MaxFilesPerBatch)
	assert.Greater(t, Business().MaxFileSizeBytes, Pro().MaxFileSizeBytes)
	assert.Greater(t, Business().OCRTimeout, Pro().OCRTimeout)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"free", "pro", "business"} {
		p, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
	}

	_, err := ByName("enterprise")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enterprise")
}
