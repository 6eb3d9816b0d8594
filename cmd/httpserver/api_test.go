//go:build integration

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/ledgerdelivery"
	"github.com/go-petr/pet-ledger/pkg/web"
)

func send(t *testing.T, h http.Handler, method, path string, body any, data any) (int, string) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)

	res := web.Response{Data: data}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

	return recorder.Code, res.Error
}

func TestLedgerAPI(t *testing.T) {
	server := integrationtest.SetupServer(t)

	var created struct {
		Account accountdelivery.AccountView `json:"account"`
	}

	status, errMsg := send(t, server, http.MethodPost, "/accounts",
		map[string]string{"name": "Ana", "initial_balance": "1000"}, &created)
	require.Equal(t, http.StatusCreated, status, errMsg)

	accountID := created.Account.ID
	withdrawPath := fmt.Sprintf("/accounts/%s/withdraw", accountID)

	// Both withdrawals fit the opening balance alone, together they do not.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses []int
	)

	for _, amount := range []string{"700", "600"} {
		wg.Add(1)

		go func(amount string) {
			defer wg.Done()

			var res ledgerdelivery.ResultView

			req, _ := json.Marshal(map[string]string{"amount": amount})
			r := httptest.NewRequest(http.MethodPost, withdrawPath, bytes.NewReader(req))
			w := httptest.NewRecorder()
			server.ServeHTTP(w, r)
			_ = json.NewDecoder(w.Body).Decode(&web.Response{Data: &res})

			mu.Lock()
			statuses = append(statuses, w.Code)
			mu.Unlock()
		}(amount)
	}

	wg.Wait()

	require.ElementsMatch(t, []int{http.StatusOK, http.StatusUnprocessableEntity}, statuses)

	var st ledgerdelivery.StatementView

	status, errMsg = send(t, server, http.MethodGet, fmt.Sprintf("/accounts/%s/statement", accountID), nil, &st)
	require.Equal(t, http.StatusOK, status, errMsg)
	require.Contains(t, []string{"300.00", "400.00"}, st.CurrentBalance)
	require.Len(t, st.Transactions, 1)

	transactionPath := "/transactions/" + st.Transactions[0].ID.String()

	var res ledgerdelivery.ResultView

	status, errMsg = send(t, server, http.MethodDelete, transactionPath, nil, &res)
	require.Equal(t, http.StatusOK, status, errMsg)
	require.Equal(t, "1000.00", res.Balance)

	status, errMsg = send(t, server, http.MethodPost, transactionPath+"/restore", nil, &res)
	require.Equal(t, http.StatusOK, status, errMsg)
	require.Equal(t, st.CurrentBalance, res.Balance)

	status, errMsg = send(t, server, http.MethodPost, withdrawPath, map[string]string{"amount": "1000"}, &res)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "insufficient funds", errMsg)
}
