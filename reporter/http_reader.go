// Reader is a small client of the http reporter, used by the user tools and tests.

package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type HttpReader struct {
	serverIP   string // listen ip
	serverPort string // listen port

	caller ethcommon.Address
	client *http.Client
}

// APIError is a non 2xx answer of the server.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Reason  string `json:"reason"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s: %s", e.Status, e.Reason, e.Message)
}

func NewHttpReader(serverIP string, serverPort string, caller ethcommon.Address) *HttpReader {
	return &HttpReader{
		serverIP:   serverIP,
		serverPort: serverPort,
		caller:     caller,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (hr *HttpReader) url(route string) string {
	return "http://" + hr.serverIP + ":" + hr.serverPort + route
}

func (hr *HttpReader) GetHello() (string, error) {
	resp, err := hr.client.Get(hr.url(ROUTE_HELLO))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// do sends body as json (if any) and decodes the "data" field of the answer into out.
func (hr *HttpReader) do(method, route string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, hr.url(route), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderCaller, hr.caller.Hex())

	resp, err := hr.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr.Message = string(raw)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	return json.Unmarshal(raw, &envelope)
}

func (hr *HttpReader) GetIssue(id string) (*IssueView, error) {
	var v IssueView
	if err := hr.do(http.MethodGet, ROUTE_ISSUES+"/"+id, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (hr *HttpReader) RequestIssue(amount uint64, vaultID string) (*IssueView, error) {
	var v IssueView
	body := &RequestIssueBody{Amount: amount, VaultID: vaultID}
	if err := hr.do(http.MethodPost, ROUTE_ISSUES, body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (hr *HttpReader) ExecuteIssue(id string, sub *SubmissionBody) (*IssueView, error) {
	var v IssueView
	if err := hr.do(http.MethodPost, ROUTE_ISSUES+"/"+id+"/execute", sub, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (hr *HttpReader) GetRedeem(id string) (*RedeemView, error) {
	var v RedeemView
	if err := hr.do(http.MethodGet, ROUTE_REDEEMS+"/"+id, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (hr *HttpReader) RequestRedeem(amount uint64, btcAddress, vaultID string) (*RedeemView, error) {
	var v RedeemView
	body := &RequestRedeemBody{Amount: amount, BtcAddress: btcAddress, VaultID: vaultID}
	if err := hr.do(http.MethodPost, ROUTE_REDEEMS, body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (hr *HttpReader) ExecuteRedeem(id string, sub *SubmissionBody) (*RedeemView, error) {
	var v RedeemView
	if err := hr.do(http.MethodPost, ROUTE_REDEEMS+"/"+id+"/execute", sub, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (hr *HttpReader) GetVault(id string) (*VaultView, error) {
	var v VaultView
	if err := hr.do(http.MethodGet, ROUTE_VAULTS+"/"+id, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (hr *HttpReader) GetBalance(account string) (map[string]uint64, error) {
	bal := map[string]uint64{}
	if err := hr.do(http.MethodGet, ROUTE_BALANCES+"/"+account, nil, &bal); err != nil {
		return nil, err
	}
	return bal, nil
}
