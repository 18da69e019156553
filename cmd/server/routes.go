package main

import (
	"github.com/gin-gonic/gin"

	"chama-ledger.backend/internal/interfaces/http/handlers"
	"chama-ledger.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	walletHandler   *handlers.WalletHandler
	transferHandler *handlers.TransferHandler
	paymentHandler  *handlers.PaymentHandler
	chamaHandler    *handlers.ChamaHandler
	authMiddleware  gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Gateway callbacks (public, signature checked)
		v1.POST("/webhooks/paystack", d.paymentHandler.HandlePaystackWebhook)

		// Wallet routes (protected)
		wallets := v1.Group("/wallets")
		wallets.Use(d.authMiddleware)
		{
			wallets.POST("", d.walletHandler.CreateWallet)
			wallets.GET("", d.walletHandler.ListWallets)
			wallets.GET("/:id", d.walletHandler.GetWallet)
			wallets.GET("/:id/balance", d.walletHandler.GetBalance)
			wallets.GET("/:id/transactions", d.walletHandler.ListTransactions)
			wallets.PUT("/:id/lock", d.walletHandler.SetLock)
			wallets.PUT("/:id/permissions", d.walletHandler.UpdatePermissions)
			wallets.PUT("/:id/pin", d.walletHandler.SetPin)
			wallets.DELETE("/:id", d.walletHandler.Deactivate)
			wallets.POST("/:id/withdraw", middleware.IdempotencyMiddleware(), d.transferHandler.Withdraw)
		}

		// Transfer routes (protected)
		transfers := v1.Group("/transfers")
		transfers.Use(d.authMiddleware)
		{
			transfers.POST("", middleware.IdempotencyMiddleware(), d.transferHandler.Transfer)
		}

		transactions := v1.Group("/transactions")
		transactions.Use(d.authMiddleware)
		{
			transactions.GET("/:id", d.walletHandler.GetTransaction)
		}

		// Payment routes (protected)
		payments := v1.Group("/payments")
		payments.Use(d.authMiddleware)
		{
			payments.POST("/initialize", d.paymentHandler.InitializePayment)
			payments.GET("/verify/:reference", d.paymentHandler.VerifyPayment)
		}

		// Chama routes (protected)
		chamas := v1.Group("/chamas")
		chamas.Use(d.authMiddleware)
		{
			chamas.POST("/:id/members", d.chamaHandler.AddMember)
			chamas.GET("/:id/members", d.chamaHandler.ListMembers)
			chamas.GET("/:id/leaderboard", d.chamaHandler.GetLeaderboard)
			chamas.POST("/:id/leaderboard/recompute", d.chamaHandler.RecomputeLeaderboard)
		}
	}
}
