// Package mocks holds gomock doubles for the mailq ports.
//
// Regenerate after changing an interface:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	queue := mocks.NewMockDispatchQueue(ctrl)
//	queue.EXPECT().Complete(gomock.Any(), "task-1").Return(true, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=email_job_repository_mock.go github.com/target/mailq/internal/core EmailJobRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=outcome_repository_mock.go github.com/target/mailq/internal/core OutcomeRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=dispatch_queue_mock.go github.com/target/mailq/internal/core DispatchQueue
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=reaper_repository_mock.go github.com/target/mailq/internal/core ReaperRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=dispatch_handler_mock.go github.com/target/mailq/internal/core DispatchHandler

// The delivery edges live outside core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=admitter_mock.go github.com/target/mailq/internal/ratelimit Admitter
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=transport_mock.go github.com/target/mailq/internal/mail Transport
