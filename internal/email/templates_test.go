package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderConfirmation(t *testing.T) {
	body, err := RenderConfirmation("Dana Donor", "DN-ABCD2345", "O-")
	require.NoError(t, err)
	assert.Contains(t, body, "Dana Donor")
	assert.Contains(t, body, "DN-ABCD2345")
	assert.Contains(t, body, "O-")
}

func TestRenderReminderFormatsDonationDate(t *testing.T) {
	lastDonation := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	body, err := RenderReminder("Dana Donor", lastDonation, "DN-ABCD2345", "AB+")
	require.NoError(t, err)
	assert.Contains(t, body, "January 2, 2024")
	assert.Contains(t, body, "DN-ABCD2345")
	assert.Contains(t, body, "AB+")
}

func TestRenderEscapesHTML(t *testing.T) {
	body, err := RenderConfirmation("<script>alert(1)</script>", "DN-ABCD2345", "A+")
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}
