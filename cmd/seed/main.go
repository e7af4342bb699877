package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/pkg/logging"
)

func main() {
	days := flag.Int("days", 14, "days ahead to fill with fake appointments")
	perDay := flag.Int("per-day", 3, "fake appointments per open day")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.PostgresMaxConns, AppName: "seed"})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	faker := gofakeit.New(0)

	settings, err := seedClinic(ctx, pool, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed clinic")
	}
	if err := seedAppointments(ctx, pool, faker, settings, cfg.Location(), *days, *perDay, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Msg("seed complete")
}

// seedClinic stores the default catalog and settings plus one analyst
// account taken from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD.
func seedClinic(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger zerolog.Logger) (clinic.Settings, error) {
	var settings clinic.Settings

	err := db.InTx(ctx, pool, func(tx pgx.Tx) error {
		manager := clinic.NewManager(clinic.NewPgRepository(tx), identity.NewUUIDProvider(), logger)

		if _, err := manager.SaveServices(ctx, clinic.DefaultServices()); err != nil {
			return err
		}

		s := clinic.DefaultSettings()
		s.BufferMinutes = cfg.BufferMinutes
		saved, err := manager.SaveSettings(ctx, s)
		if err != nil {
			return err
		}
		settings = saved

		email := os.Getenv("SEED_ADMIN_EMAIL")
		password := os.Getenv("SEED_ADMIN_PASSWORD")
		if email == "" || password == "" {
			return nil
		}
		if err := seedAnalyst(ctx, manager, email, password); err != nil {
			return err
		}
		logger.Info().Str("email", email).Msg("analyst account ready")
		return nil
	})
	if err != nil {
		return clinic.Settings{}, err
	}

	logger.Info().Int("services", len(clinic.DefaultServices())).Msg("clinic seeded")
	return settings, nil
}

func seedAnalyst(ctx context.Context, manager *clinic.Manager, email, password string) error {
	if _, err := manager.StaffByEmail(ctx, email); err == nil {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = manager.AddStaff(ctx, clinic.Staff{
		Name:         "Clinic Analyst",
		Email:        email,
		PasswordHash: hash,
		Role:         clinic.RoleAnalyst,
	})
	return err
}

// seedAppointments fills the next days with fake confirmed sessions on the
// first free slots of each open day.
func seedAppointments(
	ctx context.Context,
	pool *pgxpool.Pool,
	faker *gofakeit.Faker,
	settings clinic.Settings,
	loc *time.Location,
	days, perDay int,
	logger zerolog.Logger,
) error {
	services := clinic.DefaultServices()
	formats := []string{string(appointment.FormatOnline), string(appointment.FormatInPerson)}
	today := time.Now().In(loc)

	total := 0
	for d := 1; d <= days; d++ {
		date := today.AddDate(0, 0, d).Format(availability.DateLayout)

		err := db.InTx(ctx, pool, func(tx pgx.Tx) error {
			n, err := seedDay(ctx, tx, faker, settings, services, formats, date, loc, perDay, logger)
			total += n
			return err
		})
		if err != nil {
			return err
		}
	}

	logger.Info().Int("appointments", total).Int("days", days).Msg("appointments seeded")
	return nil
}

func seedDay(
	ctx context.Context,
	tx pgx.Tx,
	faker *gofakeit.Faker,
	settings clinic.Settings,
	services []clinic.Service,
	formats []string,
	date string,
	loc *time.Location,
	perDay int,
	logger zerolog.Logger,
) (int, error) {
	svc := appointment.NewService(appointment.NewPgRepository(tx), identity.NewUUIDProvider(), logger)

	created := 0
	for created < perDay {
		existing, err := svc.ListByDate(ctx, date)
		if err != nil {
			return created, err
		}
		blocks, err := svc.ListBlocks(ctx)
		if err != nil {
			return created, err
		}

		service := services[faker.Number(0, len(services)-1)]
		slots := availability.ComputeSlots(availability.Input{
			Date:             date,
			Schedule:         settings.WorkingDays,
			Session:          availability.Session{Duration: settings.SessionDuration(&service), Buffer: settings.BufferMinutes},
			Appointments:     existing,
			Blocks:           blocks,
			ServiceDurations: clinic.ServiceDurations(services),
			Location:         loc,
		})
		if len(slots) == 0 {
			return created, nil
		}

		_, err = svc.Create(ctx, appointment.Appointment{
			ServiceID:     service.ID,
			PatientName:   faker.Name(),
			PatientEmail:  faker.Email(),
			PatientPhone:  faker.Phone(),
			Date:          date,
			StartTime:     slots[0],
			Format:        appointment.Format(faker.RandomString(formats)),
			Status:        appointment.StatusConfirmed,
			PaymentStatus: appointment.PaymentPending,
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
