package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		in   string
		want Command
		ok   bool
	}{
		{"משימה חדשה", CmdNewTask, true},
		{"  שלום ", CmdWelcome, true},
		{"תפריט", CmdWelcome, true},
		{"בוצע", CmdComplete, true},
		{"new task", CmdNewTask, true},
		{"New Task", CmdNewTask, true},
		{"HELLO", CmdWelcome, true},
		{"1", CmdTaskToday, true},
		{"4", CmdScheduleMeeting, true},
		{"5", CmdMyTasks, true},
		{"6", "", false},
		{"something else", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := Resolve(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestIsCancel(t *testing.T) {
	assert.True(t, IsCancel("ביטול"))
	assert.True(t, IsCancel("בטל"))
	assert.True(t, IsCancel("cancel"))
	assert.True(t, IsCancel("Cancel"))
	assert.True(t, IsCancel(" חזור "))
	assert.False(t, IsCancel("hello"))
	assert.False(t, IsCancel(""))
}

func TestConfirmation(t *testing.T) {
	v, ok := Confirmation("כן")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = Confirmation("לא")
	assert.True(t, ok)
	assert.False(t, v)

	v, ok = Confirmation("YES")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = Confirmation("לא יכול")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = Confirmation("אולי")
	assert.False(t, ok)
}

func TestIsDone(t *testing.T) {
	assert.True(t, IsDone("סיום"))
	assert.True(t, IsDone("Done"))
	assert.False(t, IsDone("עוד אחד"))
}

func TestButtonText(t *testing.T) {
	a, ok := ButtonText("✅ בוצע")
	assert.True(t, ok)
	assert.Equal(t, ActionTaskDone, a)

	// shared decline label resolves to the generic decline action
	a, ok = ButtonText("❌ לא יכול")
	assert.True(t, ok)
	assert.Equal(t, ActionDecline, a)

	_, ok = ButtonText("not a button")
	assert.False(t, ok)
}

func TestMenuSelectionMatchesCommandTable(t *testing.T) {
	// The numbered main-menu fallback must agree with Resolve's digit table.
	for digit, cmd := range map[string]Command{
		"1": CmdTaskToday, "2": CmdTaskScheduled, "3": CmdTaskDelegate,
		"4": CmdScheduleMeeting, "5": CmdMyTasks,
	} {
		a, ok := MenuSelectionFor(digit)
		assert.True(t, ok)
		assert.Equal(t, string(cmd), string(a), "digit %s", digit)
	}
}
