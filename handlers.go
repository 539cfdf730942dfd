package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/campodata/agroledger_backend/models"
	"bitbucket.org/campodata/agroledger_backend/models/reports"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"bitbucket.org/campodata/agroledger_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// respondError maps model errors onto HTTP statuses: missing rows are 404,
// violated business rules are 422, everything else is a plain 400.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrAmountExceedsBalance),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrCurrencyMismatch),
		errors.Is(err, models.ErrInvalidStateTransition),
		errors.Is(err, models.ErrMissingReason):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

/* payment terms */

type paymentTermsPreviewRequest struct {
	Code        string          `json:"code" binding:"required"`
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	BaseDate    time.Time       `json:"base_date" binding:"required"`
}

func paymentTermsPreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentTermsPreviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		code, known := models.ParsePaymentTermsCode(req.Code)
		if !known {
			c.JSON(http.StatusOK, gin.H{"known": false, "installments": []models.Installment{}})
			return
		}
		installments, err := models.ParsePaymentTerms(code, req.TotalAmount, req.BaseDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"known": true, "installments": installments})
	}
}

/* expenses */

func createExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewExpense
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		expense, err := models.CreateExpense(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, expense)
	}
}

func updateExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewExpense
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		expense, err := models.UpdateExpense(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

func getExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		expense, err := models.GetExpense(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

func listExpensesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		expenses, err := models.ListExpenses(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expenses)
	}
}

func deleteExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		expense, err := models.DeleteExpense(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

func confirmExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		expense, err := models.ConfirmExpense(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func cancelExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		expense, err := models.CancelExpense(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

func applyExpensePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewDocumentPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		expense, err := models.ApplyExpensePayment(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

func listExpensePaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		records, err := models.ListDocumentPayments(c.Request.Context(), models.DocumentKindExpense, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

/* incomes */

func createIncomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewIncome
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		income, err := models.CreateIncome(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, income)
	}
}

func updateIncomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewIncome
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		income, err := models.UpdateIncome(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, income)
	}
}

func getIncomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		income, err := models.GetIncome(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, income)
	}
}

func listIncomesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		incomes, err := models.ListIncomes(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, incomes)
	}
}

func deleteIncomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		income, err := models.DeleteIncome(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, income)
	}
}

func confirmIncomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		income, err := models.ConfirmIncome(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, income)
	}
}

func cancelIncomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		income, err := models.CancelIncome(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, income)
	}
}

func applyIncomeCollectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewDocumentPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		income, err := models.ApplyIncomeCollection(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, income)
	}
}

func listIncomeCollectionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		records, err := models.ListDocumentPayments(c.Request.Context(), models.DocumentKindIncome, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

/* payment orders */

func createPaymentOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPaymentOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		order, err := models.CreatePaymentOrder(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func getPaymentOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := models.GetPaymentOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listPaymentOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := models.ListPaymentOrders(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func approvePaymentOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := models.ApprovePaymentOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func cancelPaymentOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		order, err := models.CancelPaymentOrder(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type executePaymentOrderRequest struct {
	PaymentDate time.Time `json:"payment_date" binding:"required"`
}

func executePaymentOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req executePaymentOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		order, err := workflow.ExecutePaymentOrder(c.Request.Context(), id, req.PaymentDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

/* financial accounts */

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFinancialAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		account, err := models.CreateFinancialAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func updateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewFinancialAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		account, err := models.UpdateFinancialAccount(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func getAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		account, err := models.GetFinancialAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := models.ListFinancialAccounts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func deactivateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		account, err := models.DeactivateFinancialAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func adjustAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewAccountAdjustment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		account, err := models.AdjustFinancialAccount(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func listDailyBalancesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		from, err := time.Parse("2006-01-02", c.DefaultQuery("from", time.Now().AddDate(0, -1, 0).Format("2006-01-02")))
		if err != nil {
			respondError(c, err)
			return
		}
		to, err := time.Parse("2006-01-02", c.DefaultQuery("to", time.Now().Format("2006-01-02")))
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := models.ListDailyBalances(c.Request.Context(), id, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

/* alerts */

func listAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := models.ListPendingAlerts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

func resolveAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		alert, err := models.ResolveAlert(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

func dismissAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		alert, err := models.DismissAlert(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

func runAlertSweepHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		firmId, _ := utils.GetFirmIdFromContext(c.Request.Context())
		if err := workflow.RunAlertSweepWithLock(c.Request.Context(), firmId, time.Now()); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

/* reports */

func payableAgingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
		rows, err := reports.GetPayableAgingReport(c.Request.Context(), date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func receivableAgingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
		rows, err := reports.GetReceivableAgingReport(c.Request.Context(), date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func cashPositionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := reports.GetCashPositionReport(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func exportOutstandingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
		if err := reports.ExportOutstandingBalancesExcel(c.Request.Context(), c.Writer, date); err != nil {
			respondError(c, err)
			return
		}
	}
}
