package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithAudioFormat sets the audio output format.
func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) {
		c.format = format
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		c.httpClient.Timeout = d
	}
}

// WithBaseURL overrides the regional endpoint, e.g. for a proxy.
func WithBaseURL(url string) AzureOption {
	return func(c *AzureClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// AzureClient handles text-to-speech synthesis via Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	baseURL         string
	format          string
	httpClient      *http.Client
	log             *logger.Logger
}

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		baseURL:         fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
		format:          DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SynthesisRequest is one line to synthesize.
type SynthesisRequest struct {
	Text     string
	VoiceID  string
	Language string
	Prosody  Prosody
}

// azureVoice is one entry of the voices/list response.
type azureVoice struct {
	Name        string `json:"Name"`
	DisplayName string `json:"DisplayName"`
	ShortName   string `json:"ShortName"`
	Gender      string `json:"Gender"`
	Locale      string `json:"Locale"`
	VoiceType   string `json:"VoiceType"`
}

// Voices lists the voices of the region.
func (c *AzureClient) Voices(ctx context.Context) ([]domain.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure voice list error %d: %s", resp.StatusCode, string(body))
	}

	var raw []azureVoice
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding voice list: %w", err)
	}

	voices := make([]domain.Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, domain.Voice{
			Name:     strings.TrimSpace(v.DisplayName + " (" + v.VoiceType + ")"),
			ID:       v.ShortName,
			Language: v.Locale,
			Gender:   domain.ParseGender(strings.ToLower(v.Gender)),
		})
	}
	c.log.Debug("azure tts: %d voices listed", len(voices))
	return voices, nil
}

// Synthesize converts text to speech audio data (WAV bytes).
func (c *AzureClient) Synthesize(ctx context.Context, r SynthesisRequest) ([]byte, error) {
	ssml, err := buildSSML(r)
	if err != nil {
		return nil, err
	}
	c.log.Debug("azure tts: synthesizing %d chars with voice %s", len(r.Text), r.VoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cognitiveservices/v1", strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "KidzStage/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}

	c.log.Debug("azure tts: got %d bytes of audio", len(audioData))
	return audioData, nil
}

// buildSSML creates SSML markup with the voice and prosody applied.
func buildSSML(r SynthesisRequest) (string, error) {
	voice := r.VoiceID
	if voice == "" {
		voice = DefaultVoice
	}
	lang := r.Language
	if lang == "" {
		lang = "en-US"
	}

	var text bytes.Buffer
	if err := xml.EscapeText(&text, []byte(r.Text)); err != nil {
		return "", fmt.Errorf("escaping text: %w", err)
	}

	p := r.Prosody
	if p.Rate <= 0 {
		p.Rate = 1
	}
	if p.Pitch <= 0 {
		p.Pitch = 1
	}
	if p.Volume <= 0 || p.Volume > 1 {
		p.Volume = 1
	}

	return fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'><prosody rate='%.2f' pitch='%+.0f%%' volume='%.0f'>%s</prosody></voice></speak>`,
		lang, lang, voice, p.Rate, (p.Pitch-1)*100, p.Volume*100, text.String(),
	), nil
}
