package state

import (
	"github.com/wfunc/roomsync/logger"
)

// PlayingState 游戏进行状态
type PlayingState struct {
	PanelStateBase
	Game Game
	// Restored is set when the game was seeded from a stored snapshot, in
	// which case no STATE_REQUEST is sent on entry.
	Restored bool
}

// NewPlayingState 创建新的游戏状态
func NewPlayingState(panel Panel, g Game, restored bool) *PlayingState {
	return &PlayingState{
		PanelStateBase: PanelStateBase{
			ID:    PlayingID,
			Panel: panel,
		},
		Game:     g,
		Restored: restored,
	}
}

// OnEnter 进入游戏状态
func (s *PlayingState) OnEnter() {
	r := s.Game.Rules()
	logger.Log.Infof("entering game %s (restored=%v)", r.ID, s.Restored)
	s.Panel.RequestResize(r.Size)
	s.Game.Attach()
	if s.Restored {
		return
	}
	if err := s.Game.RequestState(); err != nil {
		logger.Log.Warnf("state request for %s failed: %v", r.ID, err)
	}
}

// OnExit 退出游戏状态
func (s *PlayingState) OnExit() {
	logger.Log.Infof("leaving game %s", s.Game.Rules().ID)
	if err := s.Game.Leave(); err != nil {
		logger.Log.Warnf("leave for %s failed: %v", s.Game.Rules().ID, err)
	}
	s.Game.Detach()
}
