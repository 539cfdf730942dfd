package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/campodata/agroledger_backend/models"
	"github.com/gin-gonic/gin"
)

/* providers */

func createProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProvider
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		provider, err := models.CreateProvider(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, provider)
	}
}

func updateProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewProvider
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		provider, err := models.UpdateProvider(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, provider)
	}
}

func getProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		provider, err := models.GetProvider(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, provider)
	}
}

func listProvidersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		providers, err := models.ListProviders(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, providers)
	}
}

func deleteProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		provider, err := models.DeleteProvider(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, provider)
	}
}

func listProviderOutstandingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := models.ListProviderOutstanding(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

/* clients */

func createClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewClient
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		client, err := models.CreateClient(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, client)
	}
}

func updateClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewClient
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		client, err := models.UpdateClient(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func getClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		client, err := models.GetClient(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func listClientsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clients, err := models.ListClients(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clients)
	}
}

func deleteClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		client, err := models.DeleteClient(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func listClientOutstandingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := models.ListClientOutstanding(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

/* currencies */

func createCurrencyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCurrency
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		currency, err := models.CreateCurrency(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, currency)
	}
}

func updateCurrencyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewCurrency
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		currency, err := models.UpdateCurrency(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, currency)
	}
}

func listCurrenciesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		currencies, err := models.ListCurrencies(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, currencies)
	}
}

/* personnel */

func createPersonnelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPersonnel
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		person, err := models.CreatePersonnel(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, person)
	}
}

func updatePersonnelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewPersonnel
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		person, err := models.UpdatePersonnel(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, person)
	}
}

func getPersonnelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		person, err := models.GetPersonnel(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, person)
	}
}

func listPersonnelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		people, err := models.ListPersonnel(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, people)
	}
}

type deactivatePersonnelRequest struct {
	EndDate time.Time `json:"end_date" binding:"required"`
}

func deactivatePersonnelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req deactivatePersonnelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		person, err := models.DeactivatePersonnel(c.Request.Context(), id, req.EndDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, person)
	}
}

/* paddocks */

func createPaddockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPaddock
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		paddock, err := models.CreatePaddock(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, paddock)
	}
}

func updatePaddockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewPaddock
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		paddock, err := models.UpdatePaddock(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, paddock)
	}
}

func getPaddockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		paddock, err := models.GetPaddock(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, paddock)
	}
}

func listPaddocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		paddocks, err := models.ListPaddocks(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, paddocks)
	}
}

/* rainfall */

func createRainfallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRainfallRecord
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		record, err := models.CreateRainfallRecord(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

func updateRainfallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewRainfallRecord
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		record, err := models.UpdateRainfallRecord(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func deleteRainfallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		record, err := models.DeleteRainfallRecord(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func listRainfallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, err := time.Parse("2006-01-02", c.DefaultQuery("from", time.Now().AddDate(-1, 0, 0).Format("2006-01-02")))
		if err != nil {
			respondError(c, err)
			return
		}
		to, err := time.Parse("2006-01-02", c.DefaultQuery("to", time.Now().Format("2006-01-02")))
		if err != nil {
			respondError(c, err)
			return
		}
		records, err := models.ListRainfallRecords(c.Request.Context(), from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func monthlyRainfallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
		if err != nil {
			respondError(c, err)
			return
		}
		summary, err := models.SummarizeMonthlyRainfall(c.Request.Context(), year)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

/* soil samples */

func createSoilSampleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSoilSample
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		sample, err := models.CreateSoilSample(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sample)
	}
}

func getSoilSampleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		sample, err := models.GetSoilSample(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sample)
	}
}

func listSoilSamplesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		paddockId, _ := strconv.Atoi(c.Query("paddock_id"))
		samples, err := models.ListSoilSamples(c.Request.Context(), paddockId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, samples)
	}
}

/* pasture measurements */

func createPastureMeasurementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPastureMeasurement
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		measurement, err := models.CreatePastureMeasurement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, measurement)
	}
}

func listPastureMeasurementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		paddockId, _ := strconv.Atoi(c.Query("paddock_id"))
		measurements, err := models.ListPastureMeasurements(c.Request.Context(), paddockId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, measurements)
	}
}

func deletePastureMeasurementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		measurement, err := models.DeletePastureMeasurement(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, measurement)
	}
}

/* purchase orders */

func createPurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPurchaseOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		order, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func getPurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := models.GetPurchaseOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listPurchaseOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := models.ListPurchaseOrders(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

type transitionPurchaseOrderRequest struct {
	Status models.PurchaseOrderStatus `json:"status" binding:"required"`
}

func transitionPurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req transitionPurchaseOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		order, err := models.TransitionPurchaseOrder(c.Request.Context(), id, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

/* remittances */

func createRemittanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRemittance
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		remittance, err := models.CreateRemittance(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, remittance)
	}
}

func getRemittanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		remittance, err := models.GetRemittance(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, remittance)
	}
}

func listRemittancesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		remittances, err := models.ListRemittances(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, remittances)
	}
}

func deleteRemittanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		remittance, err := models.DeleteRemittance(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, remittance)
	}
}

/* documents */

func attachDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		referenceType := c.Param("referenceType")
		referenceId, err := strconv.Atoi(c.Param("referenceId"))
		if err != nil || referenceId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference id"})
			return
		}
		var input models.NewDocument
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		document, err := models.AttachDocument(c.Request.Context(), referenceType, referenceId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, document)
	}
}

func deleteDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		document, err := models.DeleteDocument(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, document)
	}
}

/* history */

func listHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		refType := c.Param("referenceType")
		refId, err := strconv.Atoi(c.Param("referenceId"))
		if err != nil || refId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference id"})
			return
		}
		entries, err := models.ListHistory(c.Request.Context(), refType, refId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

/* firms (no firm middleware; these manage the tenants themselves) */

func createFirmHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFirm
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		firm, err := models.CreateFirm(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, firm)
	}
}

func getFirmHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		firm, err := models.GetFirmById(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, firm)
	}
}

func updateFirmHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFirm
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		firm, err := models.UpdateFirm(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, firm)
	}
}
