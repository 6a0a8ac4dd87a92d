package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/filestorage"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CourseService manages courses and their uploaded materials
type CourseService struct {
	repos   *repositories.Repositories
	storage filestorage.FileStorage
	now     Clock
	logger  zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(repos *repositories.Repositories, storage filestorage.FileStorage, logger zerolog.Logger) *CourseService {
	return &CourseService{
		repos:   repos,
		storage: storage,
		now:     utcNow,
		logger:  logger.With().Str("service", "courses").Logger(),
	}
}

// CreateCourse creates a course. Codes are unique and stored uppercase.
func (s *CourseService) CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*models.Course, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	course := &models.Course{
		ID:        uuid.NewString(),
		Code:      strings.ToUpper(req.Code),
		Name:      strings.TrimSpace(req.Name),
		Program:   req.Program,
		Branch:    req.Branch,
		Semester:  req.Semester,
		Credits:   req.Credits,
		CreatedAt: s.now(),
	}
	if err := s.repos.Courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// GetCourse returns a course by code
func (s *CourseService) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	return s.repos.Courses.GetByCode(ctx, strings.ToUpper(code))
}

// ListCourses lists courses, optionally narrowed to a program, branch and semester
func (s *CourseService) ListCourses(ctx context.Context, program, branch string, semester int) ([]*models.Course, error) {
	courses, err := s.repos.Courses.List(ctx, program, branch, semester)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	return courses, nil
}

// UploadMaterial stores a file for a course and records it
func (s *CourseService) UploadMaterial(ctx context.Context, courseCode, uploadedBy string, req *dto.UploadMaterialRequest, file *multipart.FileHeader) (*models.Material, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fieldError("file", "file is required")
	}
	course, err := s.GetCourse(ctx, courseCode)
	if err != nil {
		return nil, err
	}

	info, err := s.storage.Save(file, "materials/"+strings.ToLower(course.Code))
	if err != nil {
		return nil, fmt.Errorf("failed to store material: %w", err)
	}

	material := &models.Material{
		ID:          uuid.NewString(),
		CourseCode:  course.Code,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		FileURL:     info.URL,
		FilePath:    info.Path,
		FileName:    info.Filename,
		FileSize:    info.FileSize,
		UploadedBy:  uploadedBy,
		CreatedAt:   s.now(),
	}
	if err := s.repos.Materials.Create(ctx, material); err != nil {
		if delErr := s.storage.Delete(info.Path); delErr != nil {
			s.logger.Error().Err(delErr).Str("path", info.Path).Msg("Failed to remove orphaned material file")
		}
		return nil, fmt.Errorf("failed to record material: %w", err)
	}

	s.logger.Info().Str("course", course.Code).Str("material", material.ID).Int64("size", info.FileSize).Msg("Material uploaded")
	return material, nil
}

// ListMaterials returns the materials of a course, newest first
func (s *CourseService) ListMaterials(ctx context.Context, courseCode string) ([]*models.Material, error) {
	materials, err := s.repos.Materials.ListByCourse(ctx, strings.ToUpper(courseCode))
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	if materials == nil {
		materials = []*models.Material{}
	}
	return materials, nil
}

// DeleteMaterial removes a material. Teachers may only remove their own uploads;
// an empty uploadedBy skips the ownership check.
func (s *CourseService) DeleteMaterial(ctx context.Context, id, uploadedBy string) error {
	material, err := s.repos.Materials.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if uploadedBy != "" && material.UploadedBy != uploadedBy {
		return apperrors.NewForbiddenError("you can only delete materials you uploaded")
	}
	if err := s.repos.Materials.Delete(ctx, id); err != nil && !errors.Is(err, apperrors.ErrMaterialNotFound) {
		return err
	}
	if err := s.storage.Delete(material.FilePath); err != nil {
		s.logger.Warn().Err(err).Str("path", material.FilePath).Msg("Failed to delete material file")
	}
	return nil
}
