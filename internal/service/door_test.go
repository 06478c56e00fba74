package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/hardware"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
)

type doorRig struct {
	door    *DoorService
	board   *hardware.Simulated
	clock   *fakeClock
	events  *broadcast.Broadcaster[models.MotionEvent]
	breaker *FaultBreaker
	halts   *haltRecorder
}

func newDoorRig(cfg models.DoorConfig, debug bool) *doorRig {
	board, driver := newBoard()
	clock := newFakeClock()
	events := broadcast.New[models.MotionEvent](32)
	halts := &haltRecorder{}
	breaker := NewFaultBreaker(FaultThreshold, halts.Halt, logger.NewNop(), nil)
	door := NewDoorService(driver, DoorOptions{
		Identity: models.LeftDoor,
		Config:   cfg,
		Debug:    debug,
		Now:      clock.Now,
		Breaker:  breaker,
		Events:   events,
		Log:      logger.NewNop(),
	})
	return &doorRig{door: door, board: board, clock: clock, events: events, breaker: breaker, halts: halts}
}

func cmd(kind models.CommandKind) models.Command { return models.Command{Kind: kind} }

func TestSupervise_TimeoutStopsContinuous(t *testing.T) {
	r := newDoorRig(models.DoorConfig{OpeningCurrentThreshold: 60000, ClosingCurrentThreshold: 60000, HandleTimeThresholdMs: 300}, false)
	if err := r.door.Apply(cmd(models.CommandOpenContinuous)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	r.clock.Advance(299 * time.Millisecond)
	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateOpeningContinuous {
		t.Fatalf("stopped early: %s", got)
	}

	r.clock.Advance(time.Millisecond)
	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateIdle {
		t.Fatalf("state = %s, want IDLE", got)
	}
	if r.board.Pin(hardware.PinOpenRelay) {
		t.Fatal("open relay still energized")
	}
}

func TestSupervise_ReassertSlidesTimeout(t *testing.T) {
	r := newDoorRig(models.DoorConfig{OpeningCurrentThreshold: 60000, ClosingCurrentThreshold: 60000, HandleTimeThresholdMs: 300}, false)
	_ = r.door.Apply(cmd(models.CommandCloseContinuous))
	r.clock.Advance(200 * time.Millisecond)
	_ = r.door.Apply(cmd(models.CommandCloseContinuous))
	r.clock.Advance(200 * time.Millisecond)

	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateClosingContinuous {
		t.Fatalf("state = %s", got)
	}
}

func TestSupervise_FullyExemptFromTimeout(t *testing.T) {
	r := newDoorRig(models.DoorConfig{OpeningCurrentThreshold: 60000, ClosingCurrentThreshold: 60000, HandleTimeThresholdMs: 300}, false)
	_ = r.door.Apply(cmd(models.CommandOpenFully))
	r.clock.Advance(10 * time.Second)

	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateOpeningFully {
		t.Fatalf("state = %s", got)
	}
}

func TestSupervise_OverloadInterrupts(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.CommandKind
		ch    hardware.Channel
		want  models.MotionState
		relay hardware.Pin
	}{
		{"closing continuous", models.CommandCloseContinuous, hardware.ChannelClosingSense, models.StateClosingInterrupted, hardware.PinCloseRelay},
		{"closing fully", models.CommandCloseFully, hardware.ChannelClosingSense, models.StateClosingFinished, hardware.PinCloseRelay},
		{"opening continuous", models.CommandOpenContinuous, hardware.ChannelOpeningSense, models.StateOpeningInterrupted, hardware.PinOpenRelay},
		{"opening fully", models.CommandOpenFully, hardware.ChannelOpeningSense, models.StateOpeningFinished, hardware.PinOpenRelay},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newDoorRig(models.DoorConfig{OpeningCurrentThreshold: 20, ClosingCurrentThreshold: 20, HandleTimeThresholdMs: 300}, false)
			_ = r.door.Apply(cmd(tc.kind))
			// 1 mV * 80 = 80 > 20
			r.board.SetMillivolts(tc.ch, 1)

			if err := r.door.Supervise(); err != nil {
				t.Fatalf("Supervise: %v", err)
			}
			if got := r.door.State(); got != tc.want {
				t.Fatalf("state = %s, want %s", got, tc.want)
			}
			if r.board.Pin(tc.relay) {
				t.Fatal("relay still energized after overload")
			}
		})
	}
}

func TestSupervise_OverloadComparesStrictly(t *testing.T) {
	r := newDoorRig(models.DoorConfig{OpeningCurrentThreshold: 80, ClosingCurrentThreshold: 80, HandleTimeThresholdMs: 300}, false)
	_ = r.door.Apply(cmd(models.CommandOpenFully))
	r.board.SetMillivolts(hardware.ChannelOpeningSense, 1)

	_ = r.door.Supervise()
	if got := r.door.State(); got != models.StateOpeningFully {
		t.Fatalf("80 is not above 80, state = %s", got)
	}
}

func TestSupervise_OverloadOnOtherSideIgnored(t *testing.T) {
	r := newDoorRig(models.DoorConfig{OpeningCurrentThreshold: 20, ClosingCurrentThreshold: 20, HandleTimeThresholdMs: 300}, false)
	_ = r.door.Apply(cmd(models.CommandOpenFully))
	r.board.SetMillivolts(hardware.ChannelClosingSense, 100)

	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateOpeningFully {
		t.Fatalf("state = %s", got)
	}
}

func TestSupervise_IdleWithCurrentIsNotAViolation(t *testing.T) {
	r := newDoorRig(models.DefaultDoorConfig(), false)
	r.board.SetMillivolts(hardware.ChannelOpeningSense, 100)
	r.board.SetMillivolts(hardware.ChannelClosingSense, 100)

	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateIdle {
		t.Fatalf("state = %s", got)
	}
}

func TestSupervise_DebugDwellFinishesFully(t *testing.T) {
	r := newDoorRig(models.DefaultDoorConfig(), true)
	_ = r.door.Apply(cmd(models.CommandCloseFully))
	// Current is ignored in debug mode.
	r.board.SetMillivolts(hardware.ChannelClosingSense, 1000)

	r.clock.Advance(DebugDwell - time.Millisecond)
	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateClosingFully {
		t.Fatalf("finished early: %s", got)
	}

	r.clock.Advance(time.Millisecond)
	if err := r.door.Supervise(); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if got := r.door.State(); got != models.StateClosingFinished {
		t.Fatalf("state = %s, want CLOSING_FINISHED", got)
	}
}

func TestSupervise_DwellCountsFromUpgrade(t *testing.T) {
	r := newDoorRig(models.DoorConfig{HandleTimeThresholdMs: 60000}, true)
	_ = r.door.Apply(cmd(models.CommandOpenContinuous))
	r.clock.Advance(3 * time.Second)
	_ = r.door.Apply(cmd(models.CommandOpenFully))
	r.clock.Advance(3 * time.Second)

	_ = r.door.Supervise()
	if got := r.door.State(); got != models.StateOpeningFully {
		t.Fatalf("state = %s", got)
	}
}

func TestSupervise_ReadErrorStillTimesOut(t *testing.T) {
	r := newDoorRig(models.DoorConfig{OpeningCurrentThreshold: 20, ClosingCurrentThreshold: 20, HandleTimeThresholdMs: 300}, false)
	_ = r.door.Apply(cmd(models.CommandOpenContinuous))
	readErr := errors.New("adc timeout")
	r.board.FailReads(readErr)
	r.clock.Advance(300 * time.Millisecond)

	err := r.door.Supervise()
	if !errors.Is(err, readErr) {
		t.Fatalf("err = %v, want read error", err)
	}
	if got := r.door.State(); got != models.StateIdle {
		t.Fatalf("state = %s", got)
	}
}

func TestApply_PublishesTransitions(t *testing.T) {
	r := newDoorRig(models.DefaultDoorConfig(), false)
	sub := r.events.Subscribe()
	defer sub.Unsubscribe()

	_ = r.door.Apply(cmd(models.CommandOpenContinuous))
	_ = r.door.Apply(cmd(models.CommandOpenContinuous)) // no change, no event
	_ = r.door.Apply(cmd(models.CommandStop))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, want := range []string{"IDLE -> OPENING_CONTINUOUS", "OPENING_CONTINUOUS -> IDLE"} {
		ev, err := sub.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if ev.Type != models.EventTransition || ev.Description != want || ev.Door != models.LeftDoor {
			t.Fatalf("event = %+v, want %q", ev, want)
		}
	}
	if r.events.Publish(models.MotionEvent{}) != 1 {
		t.Fatal("subscriber lost")
	}
}

func TestApply_RejectsConfigure(t *testing.T) {
	r := newDoorRig(models.DefaultDoorConfig(), false)
	if err := r.door.Apply(cmd(models.CommandConfigure)); !errors.Is(err, errNotMotionCommand) {
		t.Fatalf("err = %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	r := newDoorRig(models.DefaultDoorConfig(), true)
	_ = r.door.Apply(cmd(models.CommandCloseFully))
	r.breaker.Record(errors.New("one"))

	s := r.door.Snapshot()
	if s.Identity != models.LeftDoor || s.State != models.StateClosingFully {
		t.Fatalf("snapshot = %+v", s)
	}
	if !s.Active || !s.Debug || s.FaultCount != 1 {
		t.Fatalf("snapshot flags = %+v", s)
	}
	if s.Config != models.DefaultDoorConfig() {
		t.Fatalf("config = %+v", s.Config)
	}
	if !s.LastHandleTime.Equal(r.clock.Now()) {
		t.Fatalf("last handle = %v", s.LastHandleTime)
	}
}

func TestNewDoorService_ReleasesRelaysLeftOn(t *testing.T) {
	board, driver := newBoard()
	// A previous run exited mid-motion with the open relay energized.
	_ = board.SetPin(hardware.PinOpenRelay, true)
	board.SetMillivolts(hardware.ChannelOpeningSense, 500)

	door := NewDoorService(driver, DoorOptions{Identity: models.LeftDoor, Config: models.DefaultDoorConfig(), Log: logger.NewNop()})

	if board.Pin(hardware.PinOpenRelay) || board.Pin(hardware.PinCloseRelay) {
		t.Fatal("relays still energized after start")
	}
	if got := door.State(); got != models.StateIdle {
		t.Fatalf("state = %s", got)
	}
}

func TestRelease_ForcesIdleFromAnyState(t *testing.T) {
	r := newDoorRig(models.DefaultDoorConfig(), false)
	sub := r.events.Subscribe()
	defer sub.Unsubscribe()
	_ = r.door.Apply(cmd(models.CommandOpenFully))

	if err := r.door.Release("fault threshold exceeded"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if r.board.Pin(hardware.PinOpenRelay) || r.door.State() != models.StateIdle {
		t.Fatalf("state = %s, open relay = %v", r.door.State(), r.board.Pin(hardware.PinOpenRelay))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, want := range []string{"IDLE -> OPENING_FULLY", "OPENING_FULLY -> IDLE"} {
		ev, err := sub.Recv(ctx)
		if err != nil || ev.Description != want {
			t.Fatalf("event = %+v, err = %v, want %q", ev, err, want)
		}
	}
}

func TestRelease_ReportsWriteFailure(t *testing.T) {
	r := newDoorRig(models.DefaultDoorConfig(), false)
	_ = r.door.Apply(cmd(models.CommandCloseFully))
	writeErr := errors.New("serial reply timeout")
	r.board.FailWrites(writeErr)

	if err := r.door.Release("halt"); !errors.Is(err, writeErr) {
		t.Fatalf("err = %v", err)
	}
	if got := r.door.State(); got != models.StateClosingFully {
		t.Fatalf("state = %s, want the motion kept under supervision", got)
	}
}

func TestApply_CountsCommandsByResult(t *testing.T) {
	board, driver := newBoard()
	m := metrics.New()
	door := NewDoorService(driver, DoorOptions{Identity: models.LeftDoor, Config: models.DefaultDoorConfig(), Metrics: m, Log: logger.NewNop()})

	_ = door.Apply(cmd(models.CommandOpenContinuous))
	board.FailEnergize(errors.New("gpio stuck"))
	_ = door.Apply(cmd(models.CommandCloseContinuous))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, line := range []string{
		`power_windows_door_commands_applied_total{kind="OPEN_CONTINUOUS",result="ok"} 1`,
		`power_windows_door_commands_applied_total{kind="CLOSE_CONTINUOUS",result="error"} 1`,
	} {
		if !strings.Contains(body, line) {
			t.Errorf("missing %s", line)
		}
	}
	if strings.Contains(body, `kind="CLOSE_CONTINUOUS",result="ok"`) {
		t.Error("failed command counted as applied")
	}
}
