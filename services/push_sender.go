package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"task-board-server/config"
)

// PushMessage is a provider-neutral push notification.
type PushMessage struct {
	Token string
	Title string
	Body  string
	Icon  string
	Link  string
	Data  map[string]string
}

// PushSender delivers a single message and returns the provider message id.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) (string, error)
	Name() string
}

// NewPushSender picks the sender named by cfg.Provider.
func NewPushSender(cfg config.PushConfig, log *zap.Logger) (PushSender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "fcm":
		return NewFCMSender(cfg.FirebaseCredentialsFile, cfg.FirebaseProjectID, log), nil
	case "expo":
		return NewExpoSender(cfg.ExpoURL, log), nil
	case "", "log":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown push provider %q", cfg.Provider)
	}
}

// FCMSender sends through Firebase Cloud Messaging. The Firebase app is
// created on first use and reused afterwards.
type FCMSender struct {
	credentialsFile string
	projectID       string
	log             *zap.Logger

	mu      sync.Mutex
	once    *sync.Once
	client  *messaging.Client
	initErr error
}

func NewFCMSender(credentialsFile, projectID string, log *zap.Logger) *FCMSender {
	return &FCMSender{
		credentialsFile: credentialsFile,
		projectID:       projectID,
		log:             log,
		once:            &sync.Once{},
	}
}

func (s *FCMSender) Name() string { return "fcm" }

// messagingClient initializes the Firebase app at most once per Reset.
func (s *FCMSender) messagingClient() (*messaging.Client, error) {
	s.mu.Lock()
	once := s.once
	s.mu.Unlock()

	once.Do(func() {
		var opts []option.ClientOption
		if s.credentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(s.credentialsFile))
		}
		var conf *firebase.Config
		if s.projectID != "" {
			conf = &firebase.Config{ProjectID: s.projectID}
		}

		ctx := context.Background()
		app, err := firebase.NewApp(ctx, conf, opts...)
		if err != nil {
			s.setClient(nil, fmt.Errorf("firebase init: %w", err))
			return
		}
		client, err := app.Messaging(ctx)
		if err != nil {
			s.setClient(nil, fmt.Errorf("firebase messaging: %w", err))
			return
		}
		s.log.Info("firebase messaging initialized", zap.String("project", s.projectID))
		s.setClient(client, nil)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client, s.initErr
}

func (s *FCMSender) setClient(client *messaging.Client, err error) {
	s.mu.Lock()
	s.client = client
	s.initErr = err
	s.mu.Unlock()
}

// Reset drops the cached client so the next Send initializes again.
func (s *FCMSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once = &sync.Once{}
	s.client = nil
	s.initErr = nil
}

func (s *FCMSender) Send(ctx context.Context, msg PushMessage) (string, error) {
	client, err := s.messagingClient()
	if err != nil {
		return "", err
	}
	return client.Send(ctx, buildFCMMessage(msg))
}

func buildFCMMessage(msg PushMessage) *messaging.Message {
	m := &messaging.Message{
		Token: msg.Token,
		Data:  msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: msg.Title,
				Body:  msg.Body,
				Icon:  msg.Icon,
			},
		},
	}
	// FCM rejects non-HTTPS web push links.
	if strings.HasPrefix(msg.Link, "https://") {
		m.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: msg.Link}
	}
	return m
}

// ExpoSender posts to the Expo push API.
type ExpoSender struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewExpoSender(url string, log *zap.Logger) *ExpoSender {
	return &ExpoSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (s *ExpoSender) Name() string { return "expo" }

type expoResponse struct {
	Data struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"data"`
}

func (s *ExpoSender) Send(ctx context.Context, msg PushMessage) (string, error) {
	data := make(map[string]string, len(msg.Data))
	for k, v := range msg.Data {
		data[k] = v
	}
	payload := map[string]interface{}{
		"to":        msg.Token,
		"title":     msg.Title,
		"body":      msg.Body,
		"data":      data,
		"sound":     "default",
		"priority":  "high",
		"channelId": "task_assignments",
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("expo request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read expo response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("expo push failed: %s", resp.Status)
	}

	var out expoResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode expo response: %w", err)
	}
	if out.Data.Status == "error" {
		return "", errors.New("expo push rejected: " + out.Data.Message)
	}
	s.log.Debug("expo push accepted", zap.String("id", out.Data.ID))
	return out.Data.ID, nil
}

// LogSender only logs messages. It is the default in development.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, msg PushMessage) (string, error) {
	id := uuid.NewString()
	s.log.Info("push notification",
		zap.String("id", id),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data),
	)
	return id, nil
}
