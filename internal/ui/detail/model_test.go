package detail

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/smsexpert/internal/keys"
	"github.com/nhle/smsexpert/internal/model"
)

func TestRenderData(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"object", `{"screen":"invoice","id":42}`, []string{"Data", "screen", "invoice", "42"}},
		{"string", `"campaign:42"`, []string{"Data", "campaign:42"}},
		{"array", `[1,2]`, []string{"Data", "[1,2]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(keys.DefaultKeyMap(), 100, 40)
			m.SetNotification(model.Notification{
				ID:        "a",
				Title:     "Hello",
				Source:    model.SourcePush,
				CreatedAt: time.Now(),
				Data:      json.RawMessage(tt.data),
			})
			content := m.renderContent()
			for _, w := range tt.want {
				assert.Contains(t, content, w)
			}
		})
	}
}

func TestRenderWithoutData(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.SetNotification(model.Notification{ID: "a", Title: "Hello", Data: json.RawMessage(`null`)})
	assert.NotContains(t, m.renderContent(), "Data")
}
