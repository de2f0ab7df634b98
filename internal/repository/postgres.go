package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/internal/repository/model"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewPostgresRoomRepository(db *gorm.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	roomModel := toModelRoom(room)

	if err := r.db.WithContext(ctx).Create(roomModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomCodeExists
		}
		return err
	}
	return nil
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "room_code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	roomModel := toModelRoom(room)

	updates := map[string]any{
		"title":         roomModel.Title,
		"host_id":       roomModel.HostID,
		"room_code":     roomModel.RoomCode,
		"activity_type": roomModel.ActivityType,
	}

	if roomModel.ExpiresAt == nil {
		updates["expires_at"] = gorm.Expr("NULL")
	} else {
		updates["expires_at"] = roomModel.ExpiresAt
	}

	res := r.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", roomModel.ID).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrRoomCodeExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}

	return nil
}

func (r *PostgresRoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&model.Room{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rooms []model.Room
	if err := r.db.WithContext(ctx).Find(&rooms).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		result = append(result, toDomainRoom(&rooms[i]))
	}

	return result, nil
}

func (r *PostgresRoomRepository) SaveChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}

	return r.db.WithContext(ctx).Create(&model.ChatMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		MemberID:  msg.MemberID,
		Username:  msg.Username,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.UTC(),
	}).Error
}

type PostgresFileRepository struct {
	db *gorm.DB
}

func NewPostgresFileRepository(db *gorm.DB) *PostgresFileRepository {
	return &PostgresFileRepository{db: db}
}

func (r *PostgresFileRepository) Create(ctx context.Context, file *domain.MediaFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if file == nil {
		return errors.New("file is nil")
	}

	return r.db.WithContext(ctx).Create(toModelFile(file)).Error
}

func (r *PostgresFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file model.MediaFile
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return toDomainFile(&file), nil
}

func (r *PostgresFileRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.MediaFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var files []model.MediaFile
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.MediaFile, 0, len(files))
	for i := range files {
		result = append(result, toDomainFile(&files[i]))
	}

	return result, nil
}

func (r *PostgresFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&model.MediaFile{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	userModel := toModelUser(user)

	if err := r.db.WithContext(ctx).Create(userModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserEmailExists
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toDomainUser(&user), nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	userModel := toModelUser(user)

	updateData := map[string]any{
		"name":       userModel.Name,
		"is_guest":   userModel.IsGuest,
		"updated_at": userModel.UpdatedAt,
	}

	if userModel.Email == nil {
		updateData["email"] = gorm.Expr("NULL")
	} else {
		updateData["email"] = userModel.Email
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userModel.ID).Updates(updateData)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrUserEmailExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func toModelRoom(room *domain.Room) *model.Room {
	var expiresAt *time.Time
	if !room.ExpiresAt.IsZero() {
		t := room.ExpiresAt.UTC()
		expiresAt = &t
	}

	return &model.Room{
		ID:           room.ID,
		Title:        room.Title,
		HostID:       room.HostID,
		RoomCode:     room.RoomCode,
		ActivityType: string(room.ActivityType),
		CreatedAt:    room.CreatedAt.UTC(),
		ExpiresAt:    expiresAt,
	}
}

func toDomainRoom(room *model.Room) *domain.Room {
	var expiresAt time.Time
	if room.ExpiresAt != nil {
		expiresAt = room.ExpiresAt.UTC()
	}

	return &domain.Room{
		ID:           room.ID,
		Title:        room.Title,
		HostID:       room.HostID,
		RoomCode:     room.RoomCode,
		ActivityType: domain.ActivityType(room.ActivityType),
		Members:      make(map[string]*domain.Member),
		CreatedAt:    room.CreatedAt.UTC(),
		ExpiresAt:    expiresAt,
	}
}

func toModelFile(file *domain.MediaFile) *model.MediaFile {
	return &model.MediaFile{
		ID:              file.ID,
		RoomID:          file.RoomID,
		FileName:        file.Name,
		FileURL:         file.URL,
		FileType:        file.MimeType,
		FileSize:        file.SizeBytes,
		DurationSeconds: file.DurationSeconds,
		UploadedBy:      file.UploadedBy,
		CreatedAt:       file.CreatedAt.UTC(),
	}
}

func toDomainFile(file *model.MediaFile) *domain.MediaFile {
	return &domain.MediaFile{
		ID:              file.ID,
		RoomID:          file.RoomID,
		Name:            file.FileName,
		URL:             file.FileURL,
		MimeType:        file.FileType,
		SizeBytes:       file.FileSize,
		DurationSeconds: file.DurationSeconds,
		UploadedBy:      file.UploadedBy,
		CreatedAt:       file.CreatedAt.UTC(),
	}
}

func toModelUser(user *domain.User) *model.User {
	var email *string
	if user.Email != "" {
		e := user.Email
		email = &e
	}
	return &model.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     email,
		IsGuest:   user.IsGuest,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}

func toDomainUser(user *model.User) *domain.User {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     email,
		IsGuest:   user.IsGuest,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}
