package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

var httpClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		DialContext: dialContext,
	},
}

// CreateRoom asks the control surface at baseURL for a new room.
func CreateRoom(ctx context.Context, baseURL, userID, roomType string) (*signaling.RoomCreatedPayload, error) {
	body, err := json.Marshal(map[string]string{"userId": userID, "type": roomType})
	if err != nil {
		return nil, NewError("create room", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/rooms", bytes.NewReader(body))
	if err != nil {
		return nil, NewError("create room", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created signaling.RoomCreatedPayload
	if err := do(req, http.StatusCreated, &created); err != nil {
		return nil, WrapError("create room", err, baseURL)
	}
	return &created, nil
}

// GetRoom fetches the public view of roomID.
func GetRoom(ctx context.Context, baseURL, roomID string) (*signaling.RoomInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/rooms/"+url.PathEscape(roomID), nil)
	if err != nil {
		return nil, NewError("get room", err)
	}

	var info signaling.RoomInfo
	if err := do(req, http.StatusOK, &info); err != nil {
		return nil, WrapError("get room", err, roomID)
	}
	return &info, nil
}

func do(req *http.Request, want int, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode == http.StatusNotFound {
			return ErrRoomNotFound
		}
		return fmt.Errorf("%w: %s: %s", ErrServer, resp.Status, e.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrServer, err)
	}
	return nil
}
