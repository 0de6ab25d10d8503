package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

type MockInterpreter struct {
	mock.Mock
}

var _ Interpreter = (*MockInterpreter)(nil)

func (m *MockInterpreter) Run(params Params) (RunResult, error) {
	out := m.Mock.MethodCalled("Run", params)
	return out.Get(0).(RunResult), out.Error(1)
}

// ExpectRun expects one frame of the given kind at recipient, or at any address if recipient
// is nil. If effect is set it runs against the frame params before the result is returned.
func (m *MockInterpreter) ExpectRun(kind CallKind, recipient *common.Address, result RunResult, err error, effect func(Params)) *mock.Call {
	call := m.Mock.On("Run", mock.MatchedBy(func(p Params) bool {
		return p.Kind == kind && (recipient == nil || p.Recipient == *recipient)
	})).Return(result, err)
	if effect != nil {
		call.Run(func(args mock.Arguments) { effect(args.Get(0).(Params)) })
	}
	return call.Once()
}
