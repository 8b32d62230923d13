package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	api "github.com/goodpoints/walletpoints/internal/adapters/http/api"
	"github.com/goodpoints/walletpoints/internal/app"
	"github.com/goodpoints/walletpoints/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

const checksummed = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"

type fakeDeps struct {
	gotAddress common.Address
	gotIP      string
	resp       app.Response
	err        error
}

func (f *fakeDeps) WalletData(ctx context.Context, address common.Address, clientIP string) (app.Response, error) {
	f.gotAddress = address
	f.gotIP = clientIP
	return f.resp, f.err
}

func newMux(deps api.Dependencies, allowCORS bool) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, allowCORS).Register(context.Background(), mux)
	return mux
}

func TestHandleGetWallet(t *testing.T) {
	Convey("Given a wallet with scores", t, func() {
		deps := &fakeDeps{resp: app.Response{
			TopWalletResult: json.RawMessage(`{"ok":1}`),
			WalletData:      app.WalletData{Claims: "3", Streamed: "12"},
		}}
		mux := newMux(deps, false)

		Convey("When the wallet is requested", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/wallet?address="+checksummed, nil)
			req.Header.Set("CF-Connecting-IP", "198.51.100.7")
			mux.ServeHTTP(rec, req)

			Convey("Then the payload carries both scores and the ranking result", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "application/json")

				var got api.WalletResponse
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.WalletData.Claims, ShouldEqual, "3")
				So(got.WalletData.Streamed, ShouldEqual, "12")
				So(string(got.TopWalletResult), ShouldEqual, `{"ok":1}`)
			})

			Convey("And the caller IP was forwarded", func() {
				So(deps.gotIP, ShouldEqual, "198.51.100.7")
			})

			Convey("And a request id was assigned", func() {
				So(rec.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})
		})

		Convey("When the address arrives lowercased", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/wallet?address="+strings.ToLower(checksummed), nil)
			mux.ServeHTTP(rec, req)

			Convey("Then the handler canonicalizes it before scoring", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.gotAddress.Hex(), ShouldEqual, checksummed)
			})
		})

		Convey("When a request id is supplied", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/wallet?address="+checksummed, nil)
			req.Header.Set("X-Request-ID", "req-123")
			mux.ServeHTTP(rec, req)

			Convey("Then it is echoed back", func() {
				So(rec.Header().Get("X-Request-ID"), ShouldEqual, "req-123")
			})
		})
	})

	Convey("Given a non-GET request", t, func() {
		mux := newMux(&fakeDeps{}, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/wallet?address="+checksummed, nil)
		mux.ServeHTTP(rec, req)

		Convey("Then it is rejected with a structured error", func() {
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(rec.Body.String(), ShouldContainSubstring, `"error"`)
		})
	})

	Convey("Given a malformed address", t, func() {
		deps := &fakeDeps{}
		mux := newMux(deps, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/wallet?address=nothex", nil)
		mux.ServeHTTP(rec, req)

		Convey("Then it is rejected before any scoring", func() {
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, `"error"`)
			So(deps.gotAddress, ShouldEqual, common.Address{})
		})
	})

	Convey("Given a wallet that is not whitelisted", t, func() {
		mux := newMux(&fakeDeps{err: app.ErrNotWhitelisted}, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/wallet?address="+checksummed, nil)
		mux.ServeHTTP(rec, req)

		Convey("Then the rejection is a 200 with an error body", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)

			var got map[string]string
			So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
			So(got["error"], ShouldEqual, "not whitelisted")
		})
	})

	Convey("Given a failing orchestrator", t, func() {
		mux := newMux(&fakeDeps{err: errors.New("explorer unavailable")}, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/wallet?address="+checksummed, nil)
		mux.ServeHTTP(rec, req)

		Convey("Then the caller sees an opaque 500", func() {
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(rec.Body.String(), ShouldNotContainSubstring, "explorer")
		})
	})

	Convey("Given CORS is enabled", t, func() {
		deps := &fakeDeps{resp: app.Response{TopWalletResult: json.RawMessage(`{"ok":0}`)}}
		mux := newMux(deps, true)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/wallet?address="+checksummed, nil)
		mux.ServeHTTP(rec, req)

		Convey("Then the response carries the CORS headers", func() {
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

func TestHandleHealth(t *testing.T) {
	Convey("Given the registered routes", t, func() {
		mux := newMux(&fakeDeps{}, false)

		Convey("When health is probed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then it reports OK", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
