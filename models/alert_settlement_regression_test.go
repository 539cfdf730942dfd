package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/models"
	"bitbucket.org/campodata/agroledger_backend/utils"
)

// Regression: settling or cancelling a document must close its pending alerts
// in the same transaction, not only when a payment order executes. A direct
// payment that fully settles an overdue invoice used to leave the FACTURA_VENCIDA
// alert pending until the next sweep.
//
// Run (requires Docker): INTEGRATION_TESTS=1 go test ./models -run AlertsClose -v
func TestAlertsCloseWhenDocumentsSettle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "agroledger_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	firm, err := models.CreateFirm(ctx, &models.NewFirm{
		Name:  "Estancia Test",
		Email: "owner@test.local",
	})
	if err != nil {
		t.Fatalf("CreateFirm: %v", err)
	}
	firmId := firm.ID.String()
	ctx = utils.SetFirmIdInContext(ctx, firmId)

	db := config.GetDB()
	currency := models.Currency{FirmId: firmId, Symbol: "ARS", Name: "Peso argentino"}
	if err := db.WithContext(ctx).Create(&currency).Error; err != nil {
		t.Fatalf("create currency: %v", err)
	}
	provider := models.Provider{FirmId: firmId, Name: "Semillera Sur"}
	if err := db.WithContext(ctx).Create(&provider).Error; err != nil {
		t.Fatalf("create provider: %v", err)
	}

	overdueSince := time.Now().AddDate(0, 0, -3)
	seq := 0
	newOverdueExpense := func(number string) *models.Expense {
		seq++
		due := overdueSince
		expense := models.Expense{
			FirmId:        firmId,
			ProviderId:    provider.ID,
			InvoiceSeries: "A",
			InvoiceNumber: number,
			SequenceNo:    dec(fmt.Sprint(seq)),
			IssueDate:     time.Now().AddDate(0, 0, -33),
			DueDate:       &due,
			AlertDays:     5,
			CurrencyId:    currency.ID,
			TotalAmount:   dec("100.00"),
			Balance:       dec("100.00"),
			CurrentStatus: models.DocumentStatusConfirmed,
		}
		if err := db.WithContext(ctx).Create(&expense).Error; err != nil {
			t.Fatalf("create expense %s: %v", number, err)
		}
		return &expense
	}

	emitOverdueAlert := func(expense *models.Expense) *models.Alert {
		draft, ok := models.EvaluateExpenseDue(expense, time.Now())
		if !ok {
			t.Fatalf("%s should evaluate as overdue", expense.Reference())
		}
		alert, err := models.EmitAlert(ctx, firmId, draft)
		if err != nil {
			t.Fatalf("EmitAlert: %v", err)
		}
		if alert == nil {
			t.Fatalf("expected a fresh alert for %s", expense.Reference())
		}
		return alert
	}

	fetchAlert := func(id int) *models.Alert {
		var alert models.Alert
		if err := db.WithContext(ctx).First(&alert, id).Error; err != nil {
			t.Fatalf("fetch alert %d: %v", id, err)
		}
		return &alert
	}

	// Full settlement via a direct payment resolves the pending alert; a
	// partial payment does not.
	paid := newOverdueExpense("0001")
	paidAlert := emitOverdueAlert(paid)

	if _, err := models.ApplyExpensePayment(ctx, paid.ID, &models.NewDocumentPayment{
		PaymentDate: time.Now(),
		Amount:      dec("40.00"),
		Method:      models.PaymentMethodTransfer,
	}); err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if got := fetchAlert(paidAlert.ID); got.Status != models.AlertStatusPending {
		t.Fatalf("alert after partial payment: %s, want Pending", got.Status)
	}

	if _, err := models.ApplyExpensePayment(ctx, paid.ID, &models.NewDocumentPayment{
		PaymentDate: time.Now(),
		Amount:      dec("60.00"),
		Method:      models.PaymentMethodTransfer,
	}); err != nil {
		t.Fatalf("settling payment: %v", err)
	}
	got := fetchAlert(paidAlert.ID)
	if got.Status != models.AlertStatusResolved {
		t.Fatalf("alert after full settlement: %s, want Resolved", got.Status)
	}
	if got.DedupActive != nil {
		t.Fatal("resolved alert should clear dedup_active")
	}

	// Cancelling a document closes its alerts too.
	cancelled := newOverdueExpense("0002")
	cancelledAlert := emitOverdueAlert(cancelled)
	if _, err := models.CancelExpense(ctx, cancelled.ID, "factura duplicada"); err != nil {
		t.Fatalf("CancelExpense: %v", err)
	}
	if got := fetchAlert(cancelledAlert.ID); got.Status != models.AlertStatusResolved {
		t.Fatalf("alert after cancel: %s, want Resolved", got.Status)
	}

	// Same for a cancelled payment order with a pending alert hanging off it.
	order := models.PaymentOrder{
		FirmId:        firmId,
		OrderNumber:   "OP-000001",
		SequenceNo:    dec("1"),
		AccountId:     1,
		CurrencyId:    currency.ID,
		TotalAmount:   dec("100.00"),
		CurrentStatus: models.PaymentOrderStatusDraft,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		t.Fatalf("create payment order: %v", err)
	}
	order.CreatedAt = time.Now().AddDate(0, 0, -10)
	orderDraft, ok := models.EvaluatePaymentOrderPending(&order, time.Now(), 5)
	if !ok {
		t.Fatal("10-day-old draft order should evaluate as pending")
	}
	orderAlert, err := models.EmitAlert(ctx, firmId, orderDraft)
	if err != nil || orderAlert == nil {
		t.Fatalf("EmitAlert for order: %v", err)
	}
	if _, err := models.CancelPaymentOrder(ctx, order.ID, "orden duplicada"); err != nil {
		t.Fatalf("CancelPaymentOrder: %v", err)
	}
	if got := fetchAlert(orderAlert.ID); got.Status != models.AlertStatusResolved {
		t.Fatalf("alert after order cancel: %s, want Resolved", got.Status)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("agroledger-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("agroledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=agroledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
