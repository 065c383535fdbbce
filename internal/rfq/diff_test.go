package rfq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSections_Identical(t *testing.T) {
	body := validBody()
	changes, err := DiffSections(body, body)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiffSections_SingleModified(t *testing.T) {
	oldBody := validBody()
	newBody := strings.Replace(oldBody, "Content for delivery timeline.", "Lead time is 50 days.", 1)

	changes, err := DiffSections(oldBody, newBody)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, SectionDelivery, changes[0].Heading)
	assert.Equal(t, ChangeModified, changes[0].Kind)
	assert.Equal(t, "Content for delivery timeline.", changes[0].OldBody)
	assert.Equal(t, "Lead time is 50 days.", changes[0].NewBody)
}

func TestDiffSections_AddedAndRemoved(t *testing.T) {
	oldBody := "SCOPE OF WORK\nmachining only\n"
	newBody := "SCOPE OF WORK\nmachining only\nDELIVERY TIMELINE\n60 days\n"

	changes, err := DiffSections(oldBody, newBody)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, SectionDelivery, changes[0].Heading)
	assert.Equal(t, ChangeAdded, changes[0].Kind)

	changes, err = DiffSections(newBody, oldBody)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeRemoved, changes[0].Kind)
}

func TestUnchangedOutside_ScopedEdit(t *testing.T) {
	oldBody := validBody()
	newBody := strings.Replace(oldBody, "Content for delivery timeline.", "50 days.", 1)

	ok, err := UnchangedOutside(oldBody, newBody, []string{SectionDelivery})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = UnchangedOutside(oldBody, newBody, []string{SectionCommercial})
	require.NoError(t, err)
	assert.False(t, ok)
}
