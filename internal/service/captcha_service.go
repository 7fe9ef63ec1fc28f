package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spinshop/internal/config"
	"github.com/spinshop/internal/constants"

	"github.com/mojocn/base64Captcha"
)

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID      string `json:"captcha_id"`
	CaptchaCode    string `json:"captcha_code"`
	TurnstileToken string `json:"turnstile_token"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaPublicSetting 公开可下发的验证码配置
type CaptchaPublicSetting struct {
	Provider         string `json:"provider"`
	TurnstileSiteKey string `json:"turnstile_site_key,omitempty"`
	LoginEnabled     bool   `json:"login_enabled"`
	RegisterEnabled  bool   `json:"register_enabled"`
}

type turnstileVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// CaptchaService 验证码服务
// 统一封装图片验证码与 Turnstile，按场景开关决定是否需要校验
// 外部仅需调用 Verify(scene, payload, clientIP)，图片模式下另调用 GenerateImageChallenge
type CaptchaService struct {
	cfg        config.CaptchaConfig
	httpClient *http.Client

	mu         sync.Mutex
	imageStore base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// Provider 当前验证码提供方
func (s *CaptchaService) Provider() string {
	if s == nil {
		return constants.CaptchaProviderNone
	}
	provider := strings.ToLower(strings.TrimSpace(s.cfg.Provider))
	switch provider {
	case constants.CaptchaProviderImage, constants.CaptchaProviderTurnstile:
		return provider
	default:
		return constants.CaptchaProviderNone
	}
}

// IsSceneEnabled 判断场景是否开启验证码
func (s *CaptchaService) IsSceneEnabled(scene string) bool {
	if s == nil || s.Provider() == constants.CaptchaProviderNone {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scene)) {
	case constants.CaptchaSceneLogin:
		return s.cfg.Scenes.Login
	case constants.CaptchaSceneRegister:
		return s.cfg.Scenes.Register
	default:
		return false
	}
}

// PublicSetting 获取公开可下发配置
func (s *CaptchaService) PublicSetting() CaptchaPublicSetting {
	setting := CaptchaPublicSetting{
		Provider:        s.Provider(),
		LoginEnabled:    s.IsSceneEnabled(constants.CaptchaSceneLogin),
		RegisterEnabled: s.IsSceneEnabled(constants.CaptchaSceneRegister),
	}
	if setting.Provider == constants.CaptchaProviderTurnstile {
		setting.TurnstileSiteKey = strings.TrimSpace(s.cfg.Turnstile.SiteKey)
	}
	return setting
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s.Provider() != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}

	store := s.ensureImageStore()
	driver := base64Captcha.NewDriverString(
		resolveCaptchaHeight(s.cfg.Image),
		resolveCaptchaWidth(s.cfg.Image),
		s.cfg.Image.NoiseCount,
		s.cfg.Image.ShowLine,
		resolveCaptchaLength(s.cfg.Image),
		"0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, store)
	id, b64s, _, genErr := captcha.Generate()
	if genErr != nil {
		return nil, genErr
	}

	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验验证码，场景未开启时直接放行
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload, clientIP string) error {
	if !s.IsSceneEnabled(scene) {
		return nil
	}

	switch s.Provider() {
	case constants.CaptchaProviderImage:
		captchaID := strings.TrimSpace(payload.CaptchaID)
		captchaCode := strings.TrimSpace(payload.CaptchaCode)
		if captchaID == "" || captchaCode == "" {
			return ErrCaptchaRequired
		}
		store := s.ensureImageStore()
		if !store.Verify(captchaID, captchaCode, true) {
			return ErrCaptchaInvalid
		}
		return nil
	case constants.CaptchaProviderTurnstile:
		token := strings.TrimSpace(payload.TurnstileToken)
		if token == "" {
			return ErrCaptchaRequired
		}
		return s.verifyTurnstile(token, strings.TrimSpace(clientIP))
	default:
		return ErrCaptchaConfigInvalid
	}
}

func (s *CaptchaService) verifyTurnstile(token, clientIP string) error {
	secret := strings.TrimSpace(s.cfg.Turnstile.SecretKey)
	verifyURL := strings.TrimSpace(s.cfg.Turnstile.VerifyURL)
	if secret == "" || verifyURL == "" {
		return ErrCaptchaConfigInvalid
	}

	timeout := s.cfg.Turnstile.TimeoutMS
	if timeout < 500 || timeout > 10000 {
		timeout = 2000
	}

	client := s.httpClient
	if client == nil || client.Timeout != time.Duration(timeout)*time.Millisecond {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Millisecond}
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if clientIP != "" {
		form.Set("remoteip", clientIP)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	defer resp.Body.Close()

	var result turnstileVerifyResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, decodeErr)
	}
	if !result.Success {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) ensureImageStore() base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageStore == nil {
		s.imageStore = base64Captcha.NewMemoryStore(
			resolveCaptchaMaxStore(s.cfg.Image),
			time.Duration(resolveCaptchaExpireSeconds(s.cfg.Image))*time.Second,
		)
	}
	return s.imageStore
}

func resolveCaptchaLength(cfg config.CaptchaImageConfig) int {
	if cfg.Length < 4 || cfg.Length > 10 {
		return 5
	}
	return cfg.Length
}

func resolveCaptchaWidth(cfg config.CaptchaImageConfig) int {
	if cfg.Width < 80 || cfg.Width > 640 {
		return 240
	}
	return cfg.Width
}

func resolveCaptchaHeight(cfg config.CaptchaImageConfig) int {
	if cfg.Height < 32 || cfg.Height > 320 {
		return 80
	}
	return cfg.Height
}

func resolveCaptchaMaxStore(cfg config.CaptchaImageConfig) int {
	if cfg.MaxStore <= 0 {
		return base64Captcha.GCLimitNumber
	}
	return cfg.MaxStore
}

func resolveCaptchaExpireSeconds(cfg config.CaptchaImageConfig) int {
	if cfg.ExpireSeconds <= 0 {
		return 300
	}
	return cfg.ExpireSeconds
}
