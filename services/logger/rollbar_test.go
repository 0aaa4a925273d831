package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/user"
)

func Test_rollbarItem(t *testing.T) {
	usr := user.User{ID: "1", Name: "Student", Email: "student@test.cd"}
	other := user.User{ID: "2", Name: "Other", Email: "other@test.cd"}
	errBoom := errors.New("boom")

	tests := []struct {
		name       string
		args       []interface{}
		wantItem   []interface{}
		wantPerson *user.User
	}{
		{
			name:     "message only",
			wantItem: []interface{}{"hello"},
		},
		{
			name:       "first user wins",
			args:       []interface{}{usr, other},
			wantItem:   []interface{}{"hello"},
			wantPerson: &usr,
		},
		{
			name:     "extras",
			args:     []interface{}{map[string]interface{}{"id": "42"}},
			wantItem: []interface{}{"hello", map[string]interface{}{"id": "42"}},
		},
		{
			name:     "error keeps the message in extras",
			args:     []interface{}{errBoom},
			wantItem: []interface{}{errBoom, map[string]interface{}{"message": "hello"}},
		},
		{
			name:       "error with extras and user",
			args:       []interface{}{map[string]interface{}{"id": "42"}, usr, errBoom},
			wantItem:   []interface{}{errBoom, map[string]interface{}{"id": "42", "message": "hello"}},
			wantPerson: &usr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, person := rollbarItem("hello", tt.args)
			assert.Equal(t, tt.wantItem, item)
			assert.Equal(t, tt.wantPerson, person)
		})
	}
}

func Test_rollbarItem_doesNotMutateExtras(t *testing.T) {
	extras := map[string]interface{}{"id": "42"}
	_, _ = rollbarItem("hello", []interface{}{errors.New("boom"), extras})
	assert.Equal(t, map[string]interface{}{"id": "42"}, extras)
}

func TestRollbarLogger_printsArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	logger.Error("grading failed", core.NewShutdownError("boom"), map[string]interface{}{"id": "42"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "grading failed", lines[0])
	assert.Contains(t, lines[1], "boom")
	assert.Equal(t, "map[id:42]", lines[2])
}
