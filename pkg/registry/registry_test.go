package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validActivity(id, taskType string) Activity {
	return Activity{ID: id, DisplayName: id, TaskType: taskType, Category: "project-apply", Timeout: "10s"}
}

func TestActivityRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reg     ActivityRegistry
		wantErr string
	}{
		{"ok", ActivityRegistry{Activities: []Activity{validActivity("a", "task-a"), validActivity("b", "task-b")}}, ""},
		{"empty", ActivityRegistry{}, "no activities"},
		{"duplicate id", ActivityRegistry{Activities: []Activity{validActivity("a", "task-a"), validActivity("a", "task-b")}}, "duplicate activity ID"},
		{"duplicate task type", ActivityRegistry{Activities: []Activity{validActivity("a", "task-a"), validActivity("b", "task-a")}}, "duplicate task type"},
		{"missing category", ActivityRegistry{Activities: []Activity{{ID: "a", DisplayName: "A", TaskType: "t"}}}, "Category"},
		{"project lock scope", ActivityRegistry{Activities: []Activity{{ID: "a", DisplayName: "A", TaskType: "t", Category: "c", LockScope: LockScopeProject}}}, ""},
		{"unknown lock scope", ActivityRegistry{Activities: []Activity{{ID: "a", DisplayName: "A", TaskType: "t", Category: "c", LockScope: "global"}}}, "unknown lock scope"},
		{"bad timeout", ActivityRegistry{Activities: []Activity{{ID: "a", DisplayName: "A", TaskType: "t", Category: "c", Timeout: "soon"}}}, "invalid timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{validActivity("a", "task-a")}}

	require.NoError(t, SaveRegistry(reg, path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)

	activity, ok := loaded.Find("task-a")
	require.True(t, ok)
	assert.Equal(t, "a", activity.ID)

	_, ok = loaded.Find("missing")
	assert.False(t, ok)
}
