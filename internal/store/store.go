package store

import (
	"github.com/pendulum-chain/vortex-sub005/internal/store/rampstate"
	"github.com/pendulum-chain/vortex-sub005/internal/store/submittedtransaction"
	"github.com/pendulum-chain/vortex-sub005/internal/store/usertransaction"
)

type Store struct {
	RampState            rampstate.IStore
	SubmittedTransaction submittedtransaction.IStore
	UserTransaction      usertransaction.IStore
}

func New() *Store {
	return &Store{
		RampState:            rampstate.New(),
		SubmittedTransaction: submittedtransaction.New(),
		UserTransaction:      usertransaction.New(),
	}
}
