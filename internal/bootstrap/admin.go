package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
)

// AdminConfig configura la creación del primer Super Admin.
type AdminConfig struct {
	Users  repository.UserRepository
	Policy password.Policy
	Hash   password.Params

	Email    string
	Password string
	Name     string

	// Prompt pide email/password por terminal si no vienen en la config.
	Prompt bool
	In     io.Reader // default os.Stdin
	Out    io.Writer // default os.Stdout
}

// EnsureAdmin crea un usuario local con rol Super Admin si no existe
// ninguno. Retorna el usuario creado o nil si ya había un Super Admin.
func EnsureAdmin(ctx context.Context, cfg AdminConfig) (*types.User, error) {
	log := logger.From(ctx).With(logger.Component("bootstrap"), logger.Op("EnsureAdmin"))
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Hash == (password.Params{}) {
		cfg.Hash = password.Default
	}

	hasAdmin, err := hasExistingAdmin(ctx, cfg.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing admins: %w", err)
	}
	if hasAdmin {
		log.Debug("super admin present, skipping bootstrap")
		return nil, nil
	}

	if cfg.Email == "" || cfg.Password == "" {
		if !cfg.Prompt {
			log.Warn("no super admin exists and bootstrap.admin_email/admin_password are not set")
			return nil, nil
		}
		fmt.Fprintln(cfg.Out, "No Super Admin found. Let's create the first one.")
		cfg.Email, cfg.Password, err = promptAdminCredentials(cfg.In, cfg.Out)
		if err != nil {
			return nil, fmt.Errorf("failed to prompt admin credentials: %w", err)
		}
	}

	u, err := createAdminUser(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	log.Info("super admin created", logger.UserID(u.ID), logger.Email(u.Email))
	return u, nil
}

func hasExistingAdmin(ctx context.Context, users repository.UserRepository) (bool, error) {
	admins, err := users.List(ctx, repository.ListUsersFilter{Role: rbac.RoleSuperAdmin, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(admins) > 0, nil
}

func createAdminUser(ctx context.Context, cfg AdminConfig) (*types.User, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email format", repository.ErrInvalidInput)
	}

	// un usuario existente con ese email se promueve en lugar de duplicarse
	existing, err := cfg.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Role = rbac.RoleSuperAdmin
		existing.Active = true
		if err := cfg.Users.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if err := cfg.Policy.Validate(cfg.Password); err != nil {
		return nil, err
	}
	hash, err := password.Hash(cfg.Hash, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Administrator"
	}
	u := &types.User{
		Email:       email,
		DisplayName: name,
		Credentials: types.LocalCredentials{PasswordHash: hash},
		Role:        rbac.RoleSuperAdmin,
		Active:      true,
	}
	if err := cfg.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// promptAdminCredentials lee email y password (oculto si in es una terminal).
func promptAdminCredentials(in io.Reader, out io.Writer) (email, pass string, err error) {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Admin Email: ")
	email, err = readLine(reader)
	if err != nil {
		return "", "", err
	}
	if email == "" {
		return "", "", errors.New("email cannot be empty")
	}

	fmt.Fprint(out, "Admin Password: ")
	pass, err = readSecret(in, reader, out)
	if err != nil {
		return "", "", err
	}
	fmt.Fprint(out, "Confirm Password: ")
	confirm, err := readSecret(in, reader, out)
	if err != nil {
		return "", "", err
	}
	if pass != confirm {
		return "", "", errors.New("passwords do not match")
	}
	return email, pass, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readSecret(in io.Reader, buffered *bufio.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		return string(b), err
	}
	return readLine(buffered)
}
