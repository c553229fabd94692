package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// body. Without an app secret every body is accepted.
func VerifySignature(appSecret string, body []byte, header string) bool {
	if appSecret == "" {
		return true
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// IncomingMessage is one customer message from a webhook delivery.
type IncomingMessage struct {
	ID        string
	From      string
	Timestamp string
	Type      string
	Text      string
}

type webhookBody struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseIncomingMessages flattens entry, changes and messages. Status
// callbacks carry no messages and yield an empty slice.
func ParseIncomingMessages(body []byte) ([]IncomingMessage, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, err
	}

	var out []IncomingMessage
	for _, entry := range wb.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				msg := IncomingMessage{ID: m.ID, From: m.From, Timestamp: m.Timestamp, Type: m.Type}
				if m.Text != nil {
					msg.Text = m.Text.Body
				}
				out = append(out, msg)
			}
		}
	}
	return out, nil
}
