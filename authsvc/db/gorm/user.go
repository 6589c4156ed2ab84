package gorm

import (
	"errors"

	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/twinj/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN names a shared-cache in-memory sqlite database. Nothing is
// written to disk and the data lives as long as the pool holds a connection.
func MemoryDSN(name string) string {
	return "file:" + name + "?mode=memory&cache=shared"
}

// Open opens the database and migrates the user table.
func Open(dsn string) (*libgorm.DB, error) {
	db, err := libgorm.Open(sqlite.Open(dsn), &libgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&authsvc.User{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Seed inserts the given users unless a user with the same ID exists.
func Seed(db *libgorm.DB, users ...authsvc.User) error {
	for _, u := range users {
		u := u
		if result := db.Where(authsvc.User{ID: u.ID}).FirstOrCreate(&u); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// SeedDemo creates the demo account used by the login screen.
func SeedDemo(db *libgorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(authsvc.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return Seed(db, authsvc.User{
		ID:           authsvc.DemoUserID,
		Email:        authsvc.DemoEmail,
		PasswordHash: string(hash),
	})
}

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) authsvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) Create(email, passwordHash string) (authsvc.User, error) {
	user := authsvc.User{
		ID:           uuid.NewV4().String(),
		Email:        email,
		PasswordHash: passwordHash,
	}
	result := u.db.Create(&user)

	return user, result.Error
}

func (u *userRepository) ByEmail(email string) (authsvc.User, error) {
	var user authsvc.User
	result := u.db.Where("email = ?", email).First(&user)

	return user, notFound(result.Error)
}

func (u *userRepository) ByID(id string) (authsvc.User, error) {
	var user authsvc.User
	result := u.db.Where("id = ?", id).First(&user)

	return user, notFound(result.Error)
}

func notFound(err error) error {
	if errors.Is(err, libgorm.ErrRecordNotFound) {
		return authsvc.ErrUserNotFound
	}
	return err
}
