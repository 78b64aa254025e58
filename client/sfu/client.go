// Package sfu implements the typed request layer against the hosted SFU.
// It is a stateless wrapper over five REST operations: the callers decide
// retryability, this client never retries.
package sfu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/juju/errors"
)

// SignalingError is returned for any non-success HTTP status.
type SignalingError struct {
	Status int
	Body   string
}

func (e *SignalingError) Error() string {
	return fmt.Sprintf("signaling error: status %d: %s", e.Status, e.Body)
}

type Params struct {
	Log logger.Logger

	// BaseURL is the apps endpoint, e.g.
	// https://rtc.live.cloudflare.com/v1/apps.
	BaseURL string
	AppID   string
	Token   string

	// HTTPClient is optional. http.DefaultClient is used when nil.
	HTTPClient *http.Client
}

type Client struct {
	params Params
	log    logger.Logger
	http   *http.Client
}

func NewClient(params Params) *Client {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		params: params,
		log:    params.Log.WithNamespaceAppended("sfu"),
		http:   httpClient,
	}
}

// CreateSession allocates a new session on the SFU. The offer describes
// the local peer connection; the response carries the session ID and the
// SFU's answer.
func (c *Client) CreateSession(ctx context.Context, offer SessionDescription) (*NewSessionResponse, error) {
	var res NewSessionResponse

	err := c.do(ctx, http.MethodPost, "/sessions/new", newSessionRequest{
		SessionDescription: offer,
	}, &res)

	return &res, errors.Annotate(err, "create session")
}

// PublishTracks announces local tracks on the session.
func (c *Client) PublishTracks(
	ctx context.Context,
	sessionID identifiers.SessionID,
	offer SessionDescription,
	tracks []TrackObject,
) (*TracksResponse, error) {
	var res TracksResponse

	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID.String()+"/tracks/new", tracksRequest{
		SessionDescription: &offer,
		Tracks:             tracks,
	}, &res)

	return &res, errors.Annotate(err, "publish tracks")
}

// PullTracks requests tracks published on remote sessions to be added to
// this session. The response carries the answer to apply, or per-track
// error codes when the pull partially or fully failed.
func (c *Client) PullTracks(
	ctx context.Context,
	sessionID identifiers.SessionID,
	offer SessionDescription,
	remoteTracks []TrackObject,
) (*TracksResponse, error) {
	var res TracksResponse

	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID.String()+"/tracks/new", tracksRequest{
		SessionDescription: &offer,
		Tracks:             remoteTracks,
	}, &res)

	return &res, errors.Annotate(err, "pull tracks")
}

// Renegotiate resynchronizes session state with the SFU after local
// topology changes, e.g. track removal. The description is a local
// re-offer and the response carries the answer.
func (c *Client) Renegotiate(
	ctx context.Context,
	sessionID identifiers.SessionID,
	desc SessionDescription,
) (*RenegotiateResponse, error) {
	var res RenegotiateResponse

	err := c.do(ctx, http.MethodPut, "/sessions/"+sessionID.String()+"/renegotiate", renegotiateRequest{
		SessionDescription: desc,
	}, &res)

	return &res, errors.Annotate(err, "renegotiate")
}

// CloseSession deletes the session on the SFU.
func (c *Client) CloseSession(ctx context.Context, sessionID identifiers.SessionID) error {
	err := c.do(ctx, http.MethodDelete, "/sessions/"+sessionID.String(), nil, nil)

	return errors.Annotate(err, "close session")
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	url := c.params.BaseURL + "/" + c.params.AppID + path

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Annotate(err, "marshal request")
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Annotate(err, "new request")
	}

	req.Header.Set("Authorization", "Bearer "+c.params.Token)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("Request", logger.Ctx{
		"method": method,
		"path":   path,
	})

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Annotatef(err, "%s %s", method, path)
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(res.Body)

		return errors.Trace(&SignalingError{
			Status: res.StatusCode,
			Body:   string(data),
		})
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Annotate(err, "decode response")
	}

	return nil
}
