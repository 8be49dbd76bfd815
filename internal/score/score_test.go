package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/technurture/mailsleuth/internal/types"
)

func TestScore_BaseForNeutralAddress(t *testing.T) {
	got := Score("jane@elsewhere.net", "https://acme.io/blog/post", "acme.io", Context{
		PagePriority: types.PriorityOther,
	})
	assert.Equal(t, 50, got)
}

func TestScore_DomainMatchAndSubdomain(t *testing.T) {
	exact := Score("jane@acme.io", "https://acme.io/blog", "acme.io", Context{PagePriority: types.PriorityOther})
	sub := Score("jane@mail.acme.io", "https://acme.io/blog", "acme.io", Context{PagePriority: types.PriorityOther})
	www := Score("jane@acme.io", "https://www.acme.io/blog", "www.acme.io", Context{PagePriority: types.PriorityOther})

	assert.Equal(t, 70, exact)
	assert.Equal(t, 70, sub)
	assert.Equal(t, 70, www)
}

func TestScore_ContactPageAndMailtoAndRolePrefix(t *testing.T) {
	got := Score("info@acme.io", "https://acme.io/contact", "acme.io", Context{
		PagePriority:  types.PriorityContact,
		FoundInMailto: true,
	})
	// 50 base + 20 domain + 15 contact page + 10 mailto + 10 role prefix.
	assert.Equal(t, 100, got)
}

func TestScore_ContactLikeURLWithoutPriority(t *testing.T) {
	got := Score("jane@elsewhere.net", "https://acme.io/contact-us", "acme.io", Context{
		PagePriority: types.PriorityOther,
	})
	assert.Equal(t, 65, got)
}

func TestScore_ScriptOnlyPenalty(t *testing.T) {
	scriptOnly := Score("jane@elsewhere.net", "https://acme.io/blog", "acme.io", Context{
		PagePriority:  types.PriorityOther,
		FoundInScript: true,
	})
	alsoMailto := Score("jane@elsewhere.net", "https://acme.io/blog", "acme.io", Context{
		PagePriority:  types.PriorityOther,
		FoundInScript: true,
		FoundInMailto: true,
	})

	assert.Equal(t, 30, scriptOnly)
	assert.Equal(t, 60, alsoMailto, "a mailto sighting cancels the script penalty")
}

func TestScore_PlaceholderPenalty(t *testing.T) {
	got := Score("test@elsewhere.net", "https://acme.io/blog", "acme.io", Context{
		PagePriority: types.PriorityOther,
	})
	assert.Equal(t, 20, got)
}

func TestScore_AlwaysWithinBounds(t *testing.T) {
	low := Score("dummy@elsewhere.net", "https://acme.io/blog", "acme.io", Context{
		PagePriority:  types.PriorityOther,
		FoundInScript: true,
	})
	high := Score("info@acme.io", "https://acme.io/contact", "acme.io", Context{
		PagePriority:  types.PriorityContact,
		FoundInMailto: true,
	})

	assert.GreaterOrEqual(t, low, 0)
	assert.LessOrEqual(t, high, 100)
}

func TestAdjustForVerification(t *testing.T) {
	assert.Equal(t, 75, AdjustForVerification(50, types.StatusValid))
	assert.Equal(t, 10, AdjustForVerification(50, types.StatusInvalid))
	assert.Equal(t, 60, AdjustForVerification(50, types.StatusCatchAll))
	assert.Equal(t, 50, AdjustForVerification(50, types.StatusUnknown))
	assert.Equal(t, 50, AdjustForVerification(50, types.StatusTimeout))
}

func TestAdjustForVerification_ClampIsIdempotent(t *testing.T) {
	once := AdjustForVerification(90, types.StatusValid)
	twice := AdjustForVerification(once, types.StatusValid)
	assert.Equal(t, 100, once)
	assert.Equal(t, 100, twice)

	onceDown := AdjustForVerification(20, types.StatusInvalid)
	twiceDown := AdjustForVerification(onceDown, types.StatusInvalid)
	assert.Equal(t, 0, onceDown)
	assert.Equal(t, 0, twiceDown)
}
