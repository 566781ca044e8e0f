package state

import (
	"errors"
	"sync"

	"github.com/wfunc/roomsync/game"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// ChangeState runs the current state's OnExit and then newState's OnEnter.
// Hooks run under the machine's lock and must not call back into it.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	// 检查是否有转换条件
	if conditions, exists := sm.transitions[currentID]; exists {
		if condition, exists := conditions[newID]; exists {
			if condition != nil && !condition() {
				return ErrTransitionNotAllowed
			}
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// 面板状态基础结构
type PanelStateBase struct {
	ID    string
	Panel Panel
}

func (s *PanelStateBase) GetID() string {
	return s.ID
}

func (s *PanelStateBase) OnEnter() {
	// 默认实现
}

func (s *PanelStateBase) OnExit() {
	// 默认实现
}

// MenuSize is what the game selector asks the panel for.
var MenuSize = game.Size{Width: 480, Height: 260}

const (
	MenuID    = "menu"
	PlayingID = "playing"
)

// NewMenuState creates the game selector state.
func NewMenuState(panel Panel) *MenuState {
	return &MenuState{
		PanelStateBase: PanelStateBase{
			ID:    MenuID,
			Panel: panel,
		},
	}
}

// 菜单状态
type MenuState struct {
	PanelStateBase
}

func (s *MenuState) OnEnter() {
	s.Panel.RequestResize(MenuSize)
}
