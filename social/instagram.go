// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package social

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// InstagramCredentials is the shape the instagram publisher expects behind
// the engine's opaque credentials payload.
type InstagramCredentials struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
}

// Instagram publishes a single image post through an instagram-compatible
// HTTP endpoint.
type Instagram struct {
	endpoint string
	httpc    *http.Client
}

func NewInstagram(endpoint string, httpc *http.Client) *Instagram {
	if httpc == nil {
		httpc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Instagram{endpoint: endpoint, httpc: httpc}
}

// Platform implements Publisher.
func (p *Instagram) Platform() string { return "instagram" }

type uploadResponse struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Error     *struct {
		Code    int    `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Upload implements Publisher. Provider error codes are folded into the
// package's failure taxonomy.
func (p *Instagram) Upload(ctx context.Context, image []byte, caption string, credentials any) (*UploadResult, error) {
	creds, err := decodeCredentials(credentials)
	if err != nil {
		return nil, err
	}
	if creds.AccessToken == "" || creds.AccountID == "" {
		return nil, errors.Wrap(ErrAuthRequired, "instagram access token or account id missing")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "post.png")
	if err != nil {
		return nil, errors.Wrap(err, "build upload form")
	}
	if _, err := fw.Write(image); err != nil {
		return nil, errors.Wrap(err, "write upload form")
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return nil, errors.Wrap(err, "write caption field")
	}
	if err := mw.WriteField("account_id", creds.AccountID); err != nil {
		return nil, errors.Wrap(err, "write account field")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "close upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "upload request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read upload response")
	}
	var ur uploadResponse
	if err := json.Unmarshal(data, &ur); err != nil {
		return nil, errors.Wrapf(err, "decode upload response (status %d)", resp.StatusCode)
	}
	if ur.Error != nil {
		return nil, classifyProviderError(resp.StatusCode, ur.Error.Type, ur.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyProviderError(resp.StatusCode, "", string(data))
	}
	if ur.ID == "" {
		return nil, errors.New("upload response missing media id")
	}
	permalink := ur.Permalink
	if permalink == "" {
		permalink = "https://www.instagram.com/p/" + ur.ID + "/"
	}
	return &UploadResult{MediaID: ur.ID, CanonicalURL: permalink}, nil
}

func decodeCredentials(credentials any) (*InstagramCredentials, error) {
	switch c := credentials.(type) {
	case nil:
		return nil, errors.Wrap(ErrAuthRequired, "no instagram credentials configured")
	case *InstagramCredentials:
		return c, nil
	case InstagramCredentials:
		return &c, nil
	case map[string]any:
		// Credentials loaded from config or a stored run arrive untyped.
		data, err := json.Marshal(c)
		if err != nil {
			return nil, errors.Wrap(err, "encode credentials")
		}
		var creds InstagramCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, errors.Wrap(err, "decode credentials")
		}
		return &creds, nil
	default:
		return nil, errors.Wrapf(ErrAuthRequired, "unexpected credentials type %T", credentials)
	}
}

func classifyProviderError(status int, errType, msg string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || errType == "OAuthException":
		return errors.Wrapf(ErrAuthRequired, "provider: %s", msg)
	case errType == "checkpoint_required" || errType == "challenge_required":
		return errors.Wrapf(ErrChallengeRequired, "provider: %s", msg)
	default:
		return errors.Errorf("provider error (status %d): %s", status, msg)
	}
}
