package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type certificateService struct {
	Dependencies
}

// NewCertificateService stores certificates in the service database
func NewCertificateService(deps Dependencies) CertificateIssuer {
	return &certificateService{Dependencies: deps.withDefaults()}
}

// Issue creates the certificate. When the student already holds one it is
// returned together with ErrCertificateIssued.
func (s *certificateService) Issue(ctx context.Context, courseID uint, studentID string, finalGrade float64) (*models.Certificate, error) {
	existing, err := s.Repo.Certificate().GetByCourseAndStudent(ctx, courseID, studentID)
	if err == nil {
		return existing, ErrCertificateIssued
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check certificate: %w", err)
	}

	certificate := &models.Certificate{
		CourseID:   courseID,
		StudentID:  studentID,
		Code:       newCertificateCode(),
		FinalGrade: finalGrade,
		IssuedAt:   s.Clock(),
	}
	if err := s.Repo.Certificate().Create(ctx, certificate); err != nil {
		if repositories.IsDuplicateError(err) {
			existing, getErr := s.Repo.Certificate().GetByCourseAndStudent(ctx, courseID, studentID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load concurrently issued certificate: %w", getErr)
			}
			return existing, ErrCertificateIssued
		}
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	s.Logger.Info("Certificate issued",
		"certificate_id", certificate.ID,
		"course_id", courseID,
		"student_id", studentID)

	s.publish(ctx, []*events.Event{events.NewEvent(events.CertificateIssued, studentID, events.CertificateIssuedData{
		CertificateID: certificate.ID,
		CourseID:      courseID,
		StudentID:     studentID,
		Code:          certificate.Code,
		FinalGrade:    finalGrade,
		IssuedAt:      certificate.IssuedAt,
	})})

	return certificate, nil
}

func newCertificateCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CERT-" + strings.ToUpper(raw[:16])
}
