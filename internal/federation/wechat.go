package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rentwise/rentwise/backend/go-services/internal/config"
)

// ProviderWechat is the provider name stored on WeChat-federated users.
const ProviderWechat = "wechat"

// WechatExchanger exchanges a mini-program login code via jscode2session.
type WechatExchanger struct {
	appID   string
	secret  string
	apiBase string
	client  *http.Client
}

func NewWechatExchanger(cfg config.WechatConfig, client *http.Client) *WechatExchanger {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.weixin.qq.com"
	}
	return &WechatExchanger{appID: cfg.AppID, secret: cfg.Secret, apiBase: base, client: client}
}

type code2SessionResponse struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// Exchange calls the provider once. The session key is not kept.
func (w *WechatExchanger) Exchange(ctx context.Context, code string) (*Identity, error) {
	q := url.Values{}
	q.Set("appid", w.appID)
	q.Set("secret", w.secret)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiBase+"/sns/jscode2session?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		// *url.Error carries the request URL, which holds the app secret
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("wechat: %s jscode2session: %w", uerr.Op, uerr.Err)
		}
		return nil, fmt.Errorf("wechat: jscode2session request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wechat: unexpected status %d", resp.StatusCode)
	}

	var body code2SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("wechat: decode response: %w", err)
	}
	if body.ErrCode != 0 {
		return nil, fmt.Errorf("wechat: errcode %d: %s", body.ErrCode, body.ErrMsg)
	}
	if body.OpenID == "" {
		return nil, fmt.Errorf("wechat: response has no openid")
	}
	return &Identity{ProviderUserID: body.OpenID, UnionID: body.UnionID}, nil
}
