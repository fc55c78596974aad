package ramp_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/pendulum-chain/vortex-sub005/internal/controller"
	"github.com/pendulum-chain/vortex-sub005/internal/handler/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/model"
	rampengine "github.com/pendulum-chain/vortex-sub005/internal/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
	"github.com/pendulum-chain/vortex-sub005/internal/view"
)

type MockController struct {
	controller.IController
	mock.Mock
}

func (m *MockController) StartRamp(ctx context.Context, params controller.StartRampParams) (*controller.StartRampResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*controller.StartRampResult), args.Error(1)
}

func (m *MockController) GetRamp(ctx context.Context, sessionID string) (*model.RampState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RampState), args.Error(1)
}

func (m *MockController) RecoverRamp(ctx context.Context, sessionID string) (*model.RampState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RampState), args.Error(1)
}

func (m *MockController) AbandonRamp(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockController) SubmitUserTransaction(ctx context.Context, sessionID string, params controller.UserTransactionParams) error {
	args := m.Called(ctx, sessionID, params)
	return args.Error(0)
}

const startBody = `{
	"flowType": "evm-to-stellar",
	"network": "polygon",
	"inputToken": "usdc",
	"outputToken": "eurc",
	"inputAmount": "11.2",
	"outputAmount": "9.975",
	"userAddress": "0x7Ba99e99Bc669B3508AFf9CC0A898E869459F877",
	"anchor": {
		"transferServer": "https://anchor.example.com/sep24",
		"bearerToken": "token",
		"transactionId": "tx-1"
	}
}`

var _ = Describe("Ramp handler", func() {
	var (
		ctrl   *MockController
		router *gin.Engine
	)

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		ctrl = &MockController{}

		h := ramp.New(ctrl, logger.New("test"), nil)
		router = gin.New()
		router.POST("/ramps", h.Start)
		router.GET("/ramps/:sessionId", h.Get)
		router.POST("/ramps/:sessionId/recover", h.Recover)
		router.DELETE("/ramps/:sessionId", h.Abandon)
		router.POST("/ramps/:sessionId/user-transactions", h.SubmitUserTransaction)
	})

	AfterEach(func() {
		ctrl.AssertExpectations(GinkgoT())
	})

	Describe("POST /ramps", func() {
		It("starts the ramp with the request mapped onto controller params", func() {
			result := &controller.StartRampResult{
				State: &model.RampState{SessionID: "s-1", FlowType: model.FlowEVMToStellar, Phase: model.PhasePrepareTransactions},
			}
			ctrl.On("StartRamp", mock.Anything, mock.MatchedBy(func(p controller.StartRampParams) bool {
				return p.FlowType == model.FlowEVMToStellar &&
					p.Network == model.NetworkPolygon &&
					p.InputAmount == "11.2" &&
					p.Anchor != nil && p.Anchor.TransactionID == "tx-1" &&
					p.BRL == nil
			})).Return(result, nil)

			w := serve(http.MethodPost, "/ramps", startBody)

			Expect(w.Code).To(Equal(http.StatusOK))
			var res view.Response[controller.StartRampResult]
			Expect(json.Unmarshal(w.Body.Bytes(), &res)).To(Succeed())
			Expect(res.Data.State.SessionID).To(Equal("s-1"))
			Expect(res.Error).To(BeEmpty())
		})

		It("rejects a body missing required fields without calling the controller", func() {
			w := serve(http.MethodPost, "/ramps", `{"flowType":"evm-to-stellar"}`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			ctrl.AssertNotCalled(GinkgoT(), "StartRamp", mock.Anything, mock.Anything)
		})

		It("rejects a non numeric amount", func() {
			body := strings.Replace(startBody, `"11.2"`, `"eleven"`, 1)

			w := serve(http.MethodPost, "/ramps", body)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		DescribeTable("maps controller errors to status codes",
			func(err error, status int) {
				ctrl.On("StartRamp", mock.Anything, mock.Anything).Return(nil, err)

				w := serve(http.MethodPost, "/ramps", startBody)

				Expect(w.Code).To(Equal(status))
				var res view.ErrorResponse
				Expect(json.Unmarshal(w.Body.Bytes(), &res)).To(Succeed())
				Expect(res.Error).To(ContainSubstring(err.Error()))
			},
			Entry("invalid input", fmt.Errorf("%w: settlement amount differs", controller.ErrInvalidRequest), http.StatusBadRequest),
			Entry("active flow", rampengine.ErrActiveFlow, http.StatusConflict),
			Entry("anything else", errors.New("signing service down"), http.StatusInternalServerError),
		)
	})

	Describe("GET /ramps/:sessionId", func() {
		It("returns the state", func() {
			ctrl.On("GetRamp", mock.Anything, "s-1").Return(&model.RampState{SessionID: "s-1"}, nil)

			w := serve(http.MethodGet, "/ramps/s-1", "")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"sessionId":"s-1"`))
		})

		It("answers 404 for an unknown session", func() {
			ctrl.On("GetRamp", mock.Anything, "nope").Return(nil, rampengine.ErrNotFound)

			w := serve(http.MethodGet, "/ramps/nope", "")

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /ramps/:sessionId/recover", func() {
		It("returns the recovered state", func() {
			ctrl.On("RecoverRamp", mock.Anything, "s-1").Return(&model.RampState{SessionID: "s-1", FlowType: model.FlowEVMToBRL}, nil)

			w := serve(http.MethodPost, "/ramps/s-1/recover", "")

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("answers 409 when the failure is unrecoverable", func() {
			ctrl.On("RecoverRamp", mock.Anything, "s-1").Return(nil, rampengine.ErrNotRecoverable)

			w := serve(http.MethodPost, "/ramps/s-1/recover", "")

			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("DELETE /ramps/:sessionId", func() {
		It("abandons the session", func() {
			ctrl.On("AbandonRamp", mock.Anything, "s-1").Return(nil)

			w := serve(http.MethodDelete, "/ramps/s-1", "")

			Expect(w.Code).To(Equal(http.StatusOK))
			var res view.MessageResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &res)).To(Succeed())
			Expect(res.Data).To(Equal("Ramp abandoned"))
		})

		It("answers 404 for an unknown session", func() {
			ctrl.On("AbandonRamp", mock.Anything, "nope").Return(rampengine.ErrNotFound)

			w := serve(http.MethodDelete, "/ramps/nope", "")

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /ramps/:sessionId/user-transactions", func() {
		const hash = "0x9f2c1b1a3c5d7e9f00112233445566778899aabbccddeeff0011223344556677"

		It("records the transaction", func() {
			ctrl.On("SubmitUserTransaction", mock.Anything, "s-1", controller.UserTransactionParams{
				Kind:   model.UserTxSquidApprove,
				TxHash: hash,
			}).Return(nil)

			w := serve(http.MethodPost, "/ramps/s-1/user-transactions", `{"kind":"squidApprove","txHash":"`+hash+`"}`)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("rejects an unknown kind", func() {
			w := serve(http.MethodPost, "/ramps/s-1/user-transactions", `{"kind":"bridge","txHash":"`+hash+`"}`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("needs a hash or a raw extrinsic", func() {
			w := serve(http.MethodPost, "/ramps/s-1/user-transactions", `{"kind":"assetHubXcm"}`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("passes controller validation errors back as 400", func() {
			ctrl.On("SubmitUserTransaction", mock.Anything, "s-1", mock.Anything).
				Return(fmt.Errorf("%w: squidSwap is not part of this flow", controller.ErrInvalidRequest))

			w := serve(http.MethodPost, "/ramps/s-1/user-transactions", `{"kind":"squidSwap","txHash":"`+hash+`"}`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
