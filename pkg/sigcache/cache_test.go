package sigcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/mimiclaw/pkg/routing"
	"github.com/sipeed/mimiclaw/pkg/signature"
)

func hedgedSig(personaID string) *signature.BehaviorSignature {
	return signature.BuildSignature(personaID,
		"Perhaps this might work. I think it seems plausible, maybe.",
	)
}

func TestCompileFromDeterministic(t *testing.T) {
	sig := hedgedSig("p1")

	a := CompileFrom(sig, routing.CategoryQuestion)
	b := CompileFrom(sig, routing.CategoryQuestion)

	assert.Equal(t, a, b)
}

func TestCompileFromFields(t *testing.T) {
	sig := hedgedSig("p1")
	compiled := CompileFrom(sig, routing.CategoryQuestion)

	assert.Equal(t, "p1", compiled.PersonaID)
	assert.Equal(t, routing.CategoryQuestion, compiled.Category)
	assert.Equal(t, sig.Version, compiled.SourceVersion)
	assert.Greater(t, compiled.HedgeLevel, 0.5)
	assert.True(t, compiled.Hints.Hedge)
	assert.Len(t, compiled.Dominant, 3)
	assert.Equal(t, signature.CategoryHedging, compiled.Dominant[0])
}

func TestCompileFromCodeCategoryHints(t *testing.T) {
	sig := signature.BuildSignature("p1", "Plain prose with no structure at all.")

	code := CompileFrom(sig, routing.CategoryCode)
	chat := CompileFrom(sig, routing.CategorySmalltalk)

	assert.True(t, code.Hints.UseCode)
	assert.False(t, chat.Hints.UseCode)
}

func TestLookupMissIsClean(t *testing.T) {
	c := NewCache()

	entry, err := c.Lookup("p1", routing.CategoryQuestion)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStoreAndLookup(t *testing.T) {
	c := NewCache()
	compiled := CompileFrom(hedgedSig("p1"), routing.CategoryQuestion)

	require.NoError(t, c.Store("p1", compiled))

	entry, err := c.Lookup("p1", routing.CategoryQuestion)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, compiled, entry)

	// Different category for the same persona is still a miss.
	entry, err = c.Lookup("p1", routing.CategoryTask)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStoreReplacesAtomically(t *testing.T) {
	c := NewCache()
	sig := hedgedSig("p1")

	first := CompileFrom(sig, routing.CategoryQuestion)
	require.NoError(t, c.Store("p1", first))

	evolved := sig.Merge(signature.Analyze("Definitely! Absolutely certain!"))
	second := CompileFrom(evolved, routing.CategoryQuestion)
	require.NoError(t, c.Store("p1", second))

	entry, err := c.Lookup("p1", routing.CategoryQuestion)
	require.NoError(t, err)
	assert.Equal(t, second.SourceVersion, entry.SourceVersion)
	assert.Equal(t, 1, c.Len())
}

func TestStoreRejectsMismatchedOwner(t *testing.T) {
	c := NewCache()
	compiled := CompileFrom(hedgedSig("p1"), routing.CategoryQuestion)

	err := c.Store("p2", compiled)
	require.Error(t, err)

	var inconsistency *InconsistencyError
	require.ErrorAs(t, err, &inconsistency)
	assert.Equal(t, "p2", inconsistency.Slot)
	assert.Equal(t, "p1", inconsistency.Owner)
	assert.Zero(t, c.Len())
}

func TestInvalidateDropsAllCategories(t *testing.T) {
	c := NewCache()
	sig := hedgedSig("p1")

	require.NoError(t, c.Store("p1", CompileFrom(sig, routing.CategoryQuestion)))
	require.NoError(t, c.Store("p1", CompileFrom(sig, routing.CategoryTask)))
	other := hedgedSig("p2")
	require.NoError(t, c.Store("p2", CompileFrom(other, routing.CategoryTask)))

	c.Invalidate("p1")

	assert.Equal(t, 1, c.Len())
	entry, err := c.Lookup("p2", routing.CategoryTask)
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestConcurrentLookups(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Store("p1", CompileFrom(hedgedSig("p1"), routing.CategoryQuestion)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				entry, err := c.Lookup("p1", routing.CategoryQuestion)
				if err != nil || entry == nil {
					t.Error("lookup failed under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestVersions(t *testing.T) {
	c := NewCache()
	sig := hedgedSig("p1")
	evolved := sig.Merge(signature.Analyze("Maybe more, possibly."))

	require.NoError(t, c.Store("p1", CompileFrom(sig, routing.CategoryQuestion)))
	require.NoError(t, c.Store("p1", CompileFrom(evolved, routing.CategoryTask)))

	versions := c.Versions()
	assert.Equal(t, evolved.Version, versions["p1"])
}
