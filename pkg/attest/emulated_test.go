package attest

import (
	"context"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmulated_Lifecycle(t *testing.T) {
	ctx := context.Background()
	provider := NewEmulated("TEAMID1234.com.example.app", NewMemoryRecordStore())
	cdh := make([]byte, 32)

	keyID, err := provider.EnsureKeyID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, keyID)

	// EnsureKeyID is stable and never marks the key attested.
	again, err := provider.EnsureKeyID(ctx)
	require.NoError(t, err)
	assert.Equal(t, keyID, again)

	_, err = provider.GenerateAssertion(ctx, keyID, cdh)
	assert.True(t, IsNotAttested(err), "unregistered key must signal not-attested, got %v", err)

	blob, err := provider.Attest(ctx, keyID, cdh)
	require.NoError(t, err)

	var attObj struct {
		Format   string `cbor:"fmt"`
		AuthData []byte `cbor:"authData"`
	}
	require.NoError(t, cbor.Unmarshal(blob, &attObj))
	assert.Equal(t, "apple-appattest", attObj.Format)
	assert.Len(t, attObj.AuthData, 37)

	require.NoError(t, provider.MarkAttested(keyID))

	assertion, err := provider.GenerateAssertion(ctx, keyID, cdh)
	require.NoError(t, err)

	var asrt struct {
		Signature         []byte `cbor:"signature"`
		AuthenticatorData []byte `cbor:"authenticatorData"`
	}
	require.NoError(t, cbor.Unmarshal(assertion, &asrt))
	assert.NotEmpty(t, asrt.Signature)
	assert.Len(t, asrt.AuthenticatorData, 37)
}

func TestEmulated_CounterAdvances(t *testing.T) {
	ctx := context.Background()
	provider := NewEmulated("TEAMID1234.com.example.app", NewMemoryRecordStore())
	cdh := make([]byte, 32)

	keyID, err := provider.EnsureKeyID(ctx)
	require.NoError(t, err)
	_, err = provider.Attest(ctx, keyID, cdh)
	require.NoError(t, err)
	require.NoError(t, provider.MarkAttested(keyID))

	first, err := provider.GenerateAssertion(ctx, keyID, cdh)
	require.NoError(t, err)
	second, err := provider.GenerateAssertion(ctx, keyID, cdh)
	require.NoError(t, err)

	counterOf := func(blob []byte) []byte {
		var asrt struct {
			AuthenticatorData []byte `cbor:"authenticatorData"`
		}
		require.NoError(t, cbor.Unmarshal(blob, &asrt))
		return asrt.AuthenticatorData[33:]
	}
	assert.NotEqual(t, counterOf(first), counterOf(second), "sign counter must advance")
}

func TestEmulated_ClearResetsState(t *testing.T) {
	ctx := context.Background()
	provider := NewEmulated("TEAMID1234.com.example.app", NewMemoryRecordStore())

	keyID, err := provider.EnsureKeyID(ctx)
	require.NoError(t, err)

	require.NoError(t, provider.Clear())

	fresh, err := provider.EnsureKeyID(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, keyID, fresh, "expected a new key id after Clear")

	// The old key id is now invalid.
	_, err = provider.GenerateAssertion(ctx, keyID, make([]byte, 32))
	assert.True(t, IsKeyInvalid(err), "got %v", err)
}

func TestEmulated_RecordWithoutKeyIsInvalid(t *testing.T) {
	ctx := context.Background()
	records := NewMemoryRecordStore()
	require.NoError(t, records.Save(&KeyRecord{KeyID: "stale-key", Attested: true}))

	// A new provider instance sees the record but has no key material,
	// mirroring a key the platform invalidated across processes.
	provider := NewEmulated("TEAMID1234.com.example.app", records)

	keyID, err := provider.EnsureKeyID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stale-key", keyID)

	_, err = provider.GenerateAssertion(ctx, keyID, make([]byte, 32))
	assert.True(t, IsKeyInvalid(err), "got %v", err)
}

func TestUnsupported(t *testing.T) {
	ctx := context.Background()
	provider := NewUnsupported()

	_, err := provider.EnsureKeyID(ctx)
	assert.True(t, IsUnavailable(err))
	_, err = provider.Attest(ctx, "k", nil)
	assert.True(t, IsUnavailable(err))
	_, err = provider.GenerateAssertion(ctx, "k", nil)
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsUnavailable(provider.MarkAttested("k")))
	assert.NoError(t, provider.Clear())
}
