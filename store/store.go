package store

import (
	"context"

	"gorm.io/gorm"

	"tenx/models"
)

// Store backs the workflow engine with gorm.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	return s.db.WithContext(ctx).Create(cert).Error
}

func (s *Store) CertificateByID(ctx context.Context, id uint) (*models.Certificate, error) {
	var cert models.Certificate
	if err := s.db.WithContext(ctx).First(&cert, id).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

// UpdateStatus flips the status only when the row still carries the
// expected one. Zero rows affected means another request won the race.
func (s *Store) UpdateStatus(ctx context.Context, id uint, from, to models.ApprovalStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("id = ? AND approval_status = ?", id, from).
		Update("approval_status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) CertificatesByIssuer(ctx context.Context, issuerID uint) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := s.db.WithContext(ctx).
		Where("issuer_id = ?", issuerID).
		Order("issued_date desc").
		Find(&certs).Error
	return certs, err
}

func (s *Store) CertificatesByRecipient(ctx context.Context, recipientID uint) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("issued_date desc").
		Find(&certs).Error
	return certs, err
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) ChallengeByID(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.db.WithContext(ctx).First(&challenge, id).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}
