package livestate

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

func TestAdminActionsCappedFIFO(t *testing.T) {
	s := New(Limits{})
	for i := 1; i <= 150; i++ {
		s.AddAdminAction(model.AdminAction{Action: fmt.Sprintf("action-%d", i), Timestamp: time.Now()})
	}

	snap := s.Snapshot()
	require.Len(t, snap.AdminActions, AdminActionLimit)
	for i, a := range snap.AdminActions {
		assert.Equal(t, fmt.Sprintf("action-%d", i+51), a.Action)
	}
}

func TestAdminActionsConcurrent(t *testing.T) {
	s := New(Limits{})
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddAdminAction(model.AdminAction{Action: fmt.Sprintf("a%d", i)})
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Len(t, snap.AdminActions, 50)
	seen := make(map[string]bool)
	for _, a := range snap.AdminActions {
		assert.False(t, seen[a.Action], "duplicate %s", a.Action)
		seen[a.Action] = true
	}
}

func TestAdminActionsConcurrentOverCap(t *testing.T) {
	s := New(Limits{})
	var wg sync.WaitGroup
	for i := range 300 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddAdminAction(model.AdminAction{Action: fmt.Sprintf("a%d", i)})
		}()
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().AdminActions, AdminActionLimit)
}

func TestReportAndAlertLimits(t *testing.T) {
	s := New(Limits{RecentActions: 3, Alerts: 2})
	for i := range 5 {
		s.AddReport(model.ReportAction{Content: fmt.Sprintf("r%d", i)})
		s.AddAlert(model.Alert{Content: fmt.Sprintf("x%d", i)})
	}
	snap := s.Snapshot()
	require.Len(t, snap.RecentActions, 3)
	assert.Equal(t, "r2", snap.RecentActions[0].Content)
	assert.Equal(t, "r4", snap.RecentActions[2].Content)
	require.Len(t, snap.Alerts, 2)
	assert.Equal(t, "x3", snap.Alerts[0].Content)
}

func TestUnboundedWhenZero(t *testing.T) {
	s := New(Limits{})
	for range 2000 {
		s.AddReport(model.ReportAction{})
	}
	assert.Len(t, s.Snapshot().RecentActions, 2000)
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New(Limits{})
	s.AddReport(model.ReportAction{Content: "original"})
	s.SetServerStat("players", 12)

	snap := s.Snapshot()
	snap.RecentActions[0].Content = "mutated"
	snap.ServerStats["players"] = 0

	again := s.Snapshot()
	assert.Equal(t, "original", again.RecentActions[0].Content)
	assert.Equal(t, 12, again.ServerStats["players"])
}

func TestSnapshotEmptyListsSerialiseAsArrays(t *testing.T) {
	data, err := json.Marshal(New(Limits{}).Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"online_players": [],
		"recent_actions": [],
		"admin_actions": [],
		"chat_messages": [],
		"server_stats": {},
		"alerts": []
	}`, string(data))
}

func TestReservedFields(t *testing.T) {
	s := New(Limits{})
	s.SetOnlinePlayers([]json.RawMessage{json.RawMessage(`{"name":"arthur"}`)})
	s.AddChatMessage(json.RawMessage(`"hello"`))

	snap := s.Snapshot()
	assert.Len(t, snap.OnlinePlayers, 1)
	assert.Len(t, snap.ChatMessages, 1)
}
