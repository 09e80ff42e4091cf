package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	clerktypes "pinpointAPI/internal/types/clerk"
	"pinpointAPI/internal/types/profile"
	"pinpointAPI/services"
)

// webhookTolerance bounds how stale a signed timestamp may be.
const webhookTolerance = 5 * time.Minute

// WebhookHandler receives Clerk's user lifecycle events and mirrors them
// into the profiles table.
type WebhookHandler struct {
	profileService *services.ProfileService
	signingSecret  string
}

func NewWebhookHandler(profileService *services.ProfileService, signingSecret string) *WebhookHandler {
	return &WebhookHandler{
		profileService: profileService,
		signingSecret:  signingSecret,
	}
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := h.verifySignature(r.Header, body); err != nil {
		log.Printf("Webhook: signature verification failed: %v", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var event clerktypes.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
		err = h.upsertUser(ctx, event.Data)
	case "user.deleted":
		err = h.deleteUser(ctx, event.Data)
	default:
		// Events we do not subscribe to are acknowledged and ignored.
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "event ignored"})
		return
	}

	if err != nil {
		log.Printf("Webhook: failed to process %s: %v", event.Type, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "webhook processed"})
}

func (h *WebhookHandler) upsertUser(ctx context.Context, data json.RawMessage) error {
	var user clerktypes.ClerkUserData
	if err := json.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("failed to decode user data: %w", err)
	}
	if user.ID == "" {
		return fmt.Errorf("user data missing id")
	}

	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if fullName == "" {
		fullName = user.Username
	}

	avatar := user.ImageURL
	if avatar == "" {
		avatar = user.ProfileImageURL
	}

	_, err := h.profileService.CreateProfile(ctx, &profile.CreateProfileRequest{
		ClerkID:   user.ID,
		Email:     user.PrimaryEmail(),
		FullName:  fullName,
		AvatarURL: avatar,
	})
	return err
}

func (h *WebhookHandler) deleteUser(ctx context.Context, data json.RawMessage) error {
	var deleted struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &deleted); err != nil {
		return fmt.Errorf("failed to decode deleted user: %w", err)
	}
	if deleted.ID == "" {
		return fmt.Errorf("deleted user missing id")
	}

	err := h.profileService.DeleteProfileByClerkID(ctx, deleted.ID)
	if err == services.ErrNotFound {
		// Already gone. Clerk retries on non-2xx, so treat as success.
		return nil
	}
	return err
}

// verifySignature checks the svix-style signature Clerk sends: HMAC-SHA256
// over "id.timestamp.body" keyed with the base64 part of the signing secret.
func (h *WebhookHandler) verifySignature(header http.Header, body []byte) error {
	if h.signingSecret == "" {
		return fmt.Errorf("webhook signing secret not configured")
	}

	msgID := header.Get("svix-id")
	msgTimestamp := header.Get("svix-timestamp")
	msgSignature := header.Get("svix-signature")
	if msgID == "" || msgTimestamp == "" || msgSignature == "" {
		return fmt.Errorf("missing svix headers")
	}

	ts, err := strconv.ParseInt(msgTimestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid svix timestamp: %w", err)
	}
	age := time.Since(time.Unix(ts, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return fmt.Errorf("svix timestamp outside tolerance")
	}

	secret, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(h.signingSecret, "whsec_"))
	if err != nil {
		return fmt.Errorf("invalid signing secret: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s.%s.", msgID, msgTimestamp)
	mac.Write(body)
	expected := mac.Sum(nil)

	// The header can carry several space-separated "v1,<sig>" entries.
	for _, part := range strings.Fields(msgSignature) {
		sig, ok := strings.CutPrefix(part, "v1,")
		if !ok {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return fmt.Errorf("no matching signature")
}
