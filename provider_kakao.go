package sessionkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/kakao"
)

const kakaoUserMeURL = "https://kapi.kakao.com/v2/user/me"

// KakaoProvider implements OAuth2Provider against the Kakao REST API.
type KakaoProvider struct {
	conf        oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewKakaoProvider creates a Kakao OAuth2 provider.
func NewKakaoProvider(clientID, clientSecret string) (*KakaoProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("kakao oauth config missing required fields")
	}

	return &KakaoProvider{
		conf: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     kakao.Endpoint,
			Scopes:       []string{"profile_nickname", "profile_image", "account_email"},
		},
		userInfoURL: kakaoUserMeURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *KakaoProvider) Name() ProviderType {
	return ProviderKakao
}

// AuthCodeURL builds the Kakao authorization URL.
func (p *KakaoProvider) AuthCodeURL(state, redirectURI string) string {
	conf := p.conf
	conf.RedirectURL = redirectURI
	return conf.AuthCodeURL(state)
}

// Exchange trades the authorization code for a Kakao access token. The
// redirect URI must match the one the code was issued against.
func (p *KakaoProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	conf := p.conf
	conf.RedirectURL = redirectURI

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: kakao code exchange failed: %v", ErrExternalProvider, err)
	}
	return token, nil
}

// kakaoUserResponse mirrors the subset of the Kakao user-me payload the
// core needs.
type kakaoUserResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// FetchProfile loads the Kakao user behind the token and normalizes it.
func (p *KakaoProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*FederatedProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: kakao profile request failed: %v", ErrExternalProvider, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: kakao profile fetch failed: %v", ErrExternalProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: kakao profile fetch returned status %d", ErrExternalProvider, resp.StatusCode)
	}

	var user kakaoUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: kakao profile decode failed: %v", ErrExternalProvider, err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: kakao profile missing user id", ErrExternalProvider)
	}

	return &FederatedProfile{
		ExternalID: strconv.FormatInt(user.ID, 10),
		Provider:   ProviderKakao,
		Email:      user.KakaoAccount.Email,
		Name:       user.KakaoAccount.Profile.Nickname,
		Picture:    user.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}
