package session

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/example/abroad/client/internal/api"
)

type profileResponse struct {
	Profile Profile `json:"profile"`
}

// GetProfile fetches the extended profile. Failures propagate to the
// caller; local state is untouched on failure.
func (s *Store) GetProfile(ctx context.Context) (Profile, error) {
	resp, err := s.api.Get(ctx, "/api/me/profile", nil)
	if err != nil {
		return Profile{}, fmt.Errorf("fetching profile: %w", err)
	}
	if !resp.OK() {
		return Profile{}, api.NewError(resp, "could not load profile")
	}
	var body profileResponse
	if err := resp.Decode(&body); err != nil {
		return Profile{}, err
	}

	s.setProfile(body.Profile)
	return body.Profile, nil
}

// UpdateProfile persists the fields server-side and replaces the local
// profile with the server's authoritative response. Fields are never
// merged optimistically; the server is the source of truth.
func (s *Store) UpdateProfile(ctx context.Context, fields Profile) (Profile, error) {
	resp, err := s.api.Put(ctx, "/api/me/profile", fields)
	if err != nil {
		return Profile{}, s.reportProfileErr(fmt.Errorf("updating profile: %w", err))
	}
	if !resp.OK() {
		return Profile{}, s.reportProfileErr(api.NewError(resp, "could not update profile"))
	}
	var body profileResponse
	if err := resp.Decode(&body); err != nil {
		return Profile{}, s.reportProfileErr(err)
	}

	s.setProfile(body.Profile)
	s.notifier.Success("Profile updated")
	return body.Profile, nil
}

// UploadDocuments sends one or more documents as a multipart request.
// On success the user snapshot is refreshed from the response.
func (s *Store) UploadDocuments(ctx context.Context, files []DocumentFile) error {
	if len(files) == 0 {
		return fmt.Errorf("no documents to upload")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(f.Kind, f.Name)
		if err != nil {
			return fmt.Errorf("building upload: %w", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return fmt.Errorf("building upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}

	resp, err := s.api.Do(ctx, api.Request{
		Method:      http.MethodPost,
		Path:        "/api/me/profile/documents/upload",
		RawBody:     &buf,
		ContentType: w.FormDataContentType(),
	})
	if err != nil {
		return s.reportProfileErr(fmt.Errorf("uploading documents: %w", err))
	}
	if !resp.OK() {
		return s.reportProfileErr(api.NewError(resp, "could not upload documents"))
	}
	var body profileResponse
	if err := resp.Decode(&body); err != nil {
		return s.reportProfileErr(err)
	}

	s.setProfile(body.Profile)
	s.notifier.Success("Documents uploaded")
	return nil
}

// DownloadDocument retrieves the binary content of one document slot.
func (s *Store) DownloadDocument(ctx context.Context, kind string) ([]byte, error) {
	resp, err := s.api.Get(ctx, "/api/me/profile/documents/"+kind, nil)
	if err != nil {
		return nil, s.reportProfileErr(fmt.Errorf("downloading %s: %w", kind, err))
	}
	if !resp.OK() {
		return nil, s.reportProfileErr(api.NewError(resp, "could not download "+kind))
	}
	return resp.Body, nil
}

// DeleteDocument removes one document slot. On success the profile is
// re-fetched rather than mutated locally.
func (s *Store) DeleteDocument(ctx context.Context, kind string) error {
	resp, err := s.api.Delete(ctx, "/api/me/profile/documents/"+kind)
	if err != nil {
		return s.reportProfileErr(fmt.Errorf("deleting %s: %w", kind, err))
	}
	if !resp.OK() {
		return s.reportProfileErr(api.NewError(resp, "could not delete "+kind))
	}

	if _, err := s.GetProfile(ctx); err != nil {
		// The delete itself succeeded; the resync will happen on the
		// next profile read.
		s.log.Warn("profile resync after delete failed")
	}
	s.notifier.Success("Document deleted")
	return nil
}

// setProfile replaces the local profile snapshot when logged in.
func (s *Store) setProfile(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.user.Profile = p
	}
}

// reportProfileErr surfaces a profile/document failure to the user and
// hands the error back to the caller.
func (s *Store) reportProfileErr(err error) error {
	s.notifier.Error(err.Error())
	return err
}
