package wa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskivo/taskivo/internal/lexicon"
)

func TestValidateCatalog(t *testing.T) {
	require.NoError(t, ValidateCatalog())
}

func TestCatalogShape(t *testing.T) {
	for name, tpl := range Catalog {
		assert.Equal(t, name, tpl.Name)
		assert.True(t, strings.HasPrefix(name, "wt_"), "template %s", name)
		hasActions := len(tpl.Actions) > 0
		hasItems := len(tpl.Items) > 0
		assert.True(t, hasActions != hasItems, "template %s must have actions or items, not both", name)
		if hasItems {
			assert.NotEmpty(t, tpl.Button, "list template %s needs a button label", name)
			assert.LessOrEqual(t, len(tpl.Items), 10, "template %s", name)
		}
		if hasActions {
			assert.LessOrEqual(t, len(tpl.Actions), 3, "template %s", name)
		}
	}
}

func TestFallback_Numbered(t *testing.T) {
	out := Catalog[TplMainMenu].Fallback(nil)
	assert.Contains(t, out, "שלום! 👋 מה תרצה לעשות?")
	assert.Contains(t, out, "1️⃣ 📝 משימה להיום")
	assert.Contains(t, out, "5️⃣ 📋 המשימות שלי")
	assert.Contains(t, out, "👆 שלח מספר לבחירה")
}

func TestFallback_SubstitutesVariables(t *testing.T) {
	out := Catalog[TplVoiceConfirm].Fallback(map[string]string{"1": "לקנות חלב"})
	assert.Contains(t, out, "לקנות חלב")
	assert.NotContains(t, out, "{{1}}")
}

func TestFallback_PlainForSuccessCards(t *testing.T) {
	out := Catalog[TplTaskSuccess].Fallback(map[string]string{"1": "✅ נשמר"})
	assert.Equal(t, "✅ נשמר", out)
}

func TestActionAt(t *testing.T) {
	tpl := Catalog[TplMainMenu]
	id, ok := tpl.ActionAt(1)
	require.True(t, ok)
	assert.Equal(t, lexicon.ActionTaskToday, id)

	id, ok = tpl.ActionAt(4)
	require.True(t, ok)
	assert.Equal(t, lexicon.ActionScheduleMeeting, id)

	_, ok = tpl.ActionAt(6)
	assert.False(t, ok)
	_, ok = tpl.ActionAt(0)
	assert.False(t, ok)
}

func TestActionAt_AgreesWithMenuSelections(t *testing.T) {
	tpl := Catalog[TplMainMenu]
	for _, digit := range []string{"1", "2", "3", "4", "5"} {
		want, ok := lexicon.MenuSelectionFor(digit)
		require.True(t, ok)
		got, ok := tpl.ActionAt(int(digit[0] - '0'))
		require.True(t, ok)
		assert.Equal(t, want, got, "digit %s", digit)
	}
}
