package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
vendor: Verifone
model: VX805
secure_device: EMV_VX805_KETTLE
operations:
  - reset
  - sale
  - download_config
`

const validJSON = `{
  "vendor": "Ingenico",
  "model": "iPP320",
  "secure_device": "EMV_IPP320_KETTLE",
  "operations": ["reset", "sale", "recurring_sale"]
}`

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadYAMLProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "vx805.yaml", validYAML)

	loader, err := NewLoader([]string{dir})
	require.NoError(t, err)

	p, err := loader.Load("vx805")
	require.NoError(t, err)
	assert.Equal(t, "Verifone", p.Vendor)
	assert.Equal(t, "EMV_VX805_KETTLE", p.SecureDevice)
	assert.True(t, p.Supports("sale"))
	assert.False(t, p.Supports("read_prepaid_card"))
}

func TestLoadJSONProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "ipp320.json", validJSON)

	loader, err := NewLoader([]string{dir})
	require.NoError(t, err)

	p, err := loader.Load("ipp320")
	require.NoError(t, err)
	assert.Equal(t, "Ingenico", p.Vendor)
	assert.True(t, p.Supports("recurring_sale"))
}

func TestLoadRejectsMissingSecureDevice(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "bad.yaml", `
vendor: Verifone
model: VX805
operations:
  - sale
`)

	loader, err := NewLoader([]string{dir})
	require.NoError(t, err)

	_, err = loader.Load("bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRejectsUnknownOperation(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "bad.yaml", `
vendor: Verifone
model: VX805
secure_device: X
operations:
  - teleport_money
`)

	loader, err := NewLoader([]string{dir})
	require.NoError(t, err)

	_, err = loader.Load("bad")
	assert.Error(t, err)
}

func TestLoadNotFound(t *testing.T) {
	loader, err := NewLoader([]string{t.TempDir()})
	require.NoError(t, err)

	_, err = loader.Load("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile not found")
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "vx805.yaml", validYAML)

	loader, err := NewLoader([]string{dir})
	require.NoError(t, err)

	first, err := loader.Load("vx805")
	require.NoError(t, err)

	// Even after the file disappears, the cached profile answers.
	require.NoError(t, os.Remove(filepath.Join(dir, "vx805.yaml")))
	second, err := loader.Load("vx805")
	require.NoError(t, err)
	assert.Same(t, first, second)
}
