package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"staytrack/internal/blob"
	"staytrack/pkg/domain"
)

// DocumentKind names a stored student document.
type DocumentKind string

// Student document kinds.
const (
	DocumentProfile DocumentKind = "profile"
	DocumentID      DocumentKind = "id"
)

// ErrBlobStoreDisabled is returned by document operations when the service
// was built without a blob store.
var ErrBlobStoreDisabled = errors.New("document storage not configured")

// DocumentKey returns the blob key of a student's document.
func DocumentKey(ownerID, studentID string, kind DocumentKind) string {
	return fmt.Sprintf("owners/%s/students/%s/%s", ownerID, studentID, kind)
}

// UploadStudentDocument stores a profile photo or ID scan, links it on the
// student record and returns a download URL. Re-uploading replaces the
// previous document.
func (s *Service) UploadStudentDocument(ctx context.Context, sess Session, studentID string, kind DocumentKind, contentType string, r io.Reader) (url string, err error) {
	defer s.observe(ctx, sess, "upload_student_document", true, s.clock(), func() string { return studentID }, &err)
	if s.blobs == nil {
		return "", ErrBlobStoreDisabled
	}
	if kind != DocumentProfile && kind != DocumentID {
		return "", domain.Invalid("kind", "unknown document kind %q", kind)
	}
	if err := sess.RequireOwner(); err != nil {
		return "", err
	}
	current, err := s.repo.GetStudent(ctx, sess, studentID)
	if err != nil {
		return "", err
	}
	key := DocumentKey(sess.OwnerID, studentID, kind)
	linked := (kind == DocumentProfile && current.ProfileImage == key) || (kind == DocumentID && current.IDImage == key)
	if _, err := s.blobs.Put(ctx, key, r, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"student_id": studentID, "kind": string(kind)},
	}); err != nil {
		return "", &domain.StorageError{Op: "upload", Entity: domain.EntityStudent, Err: err}
	}
	if _, _, err := s.repo.UpdateStudent(ctx, sess, studentID, func(st *Student) error {
		switch kind {
		case DocumentProfile:
			st.ProfileImage = key
		case DocumentID:
			st.IDImage = key
		}
		return nil
	}); err != nil {
		if !linked {
			s.discardDocument(ctx, key)
		}
		return "", err
	}
	return s.documentURL(ctx, key)
}

// discardDocument removes a blob that never got linked to its student.
func (s *Service) discardDocument(ctx context.Context, key string) {
	if _, err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("remove unlinked document", zap.String("key", key), zap.Error(err))
	}
}

// StudentDocumentURL returns a download URL for a stored document.
func (s *Service) StudentDocumentURL(ctx context.Context, sess Session, studentID string, kind DocumentKind) (url string, err error) {
	defer s.observe(ctx, sess, "student_document_url", false, s.clock(), nil, &err)
	if s.blobs == nil {
		return "", ErrBlobStoreDisabled
	}
	st, err := s.repo.GetStudent(ctx, sess, studentID)
	if err != nil {
		return "", err
	}
	if sess.Role == domain.RoleStudent && sess.StudentID != studentID {
		return "", domain.ErrNotFound{Entity: domain.EntityStudent, ID: studentID}
	}
	key := st.ProfileImage
	if kind == DocumentID {
		key = st.IDImage
	}
	if key == "" {
		return "", domain.ErrNotFound{Entity: domain.EntityStudent, ID: studentID + "/" + string(kind)}
	}
	return s.documentURL(ctx, key)
}

func (s *Service) documentURL(ctx context.Context, key string) (string, error) {
	url, err := s.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET"})
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Entity: domain.EntityStudent, Err: err}
	}
	return url, nil
}
