package database

const (
	// User queries
	queryInsertUser = `
		INSERT INTO users (id, username, password_hash, name, phone, role, commission_percent, uses_logistics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, username, password_hash, name, phone, role, active, must_change_password,
		       commission_percent, balance_owed, uses_logistics, created_at
		FROM users
		WHERE id = ?`

	queryGetUserByUsername = `
		SELECT id, username, password_hash, name, phone, role, active, must_change_password,
		       commission_percent, balance_owed, uses_logistics, created_at
		FROM users
		WHERE username = ?`

	queryListUsersByRole = `
		SELECT id, username, password_hash, name, phone, role, active, must_change_password,
		       commission_percent, balance_owed, uses_logistics, created_at
		FROM users
		WHERE role = ? AND active = 1
		ORDER BY name`

	queryListAllUsers = `
		SELECT id, username, password_hash, name, phone, role, active, must_change_password,
		       commission_percent, balance_owed, uses_logistics, created_at
		FROM users
		ORDER BY role, name`

	querySetUserActive = `
		UPDATE users SET active = ? WHERE id = ?`

	querySetUserPassword = `
		UPDATE users SET password_hash = ?, must_change_password = ? WHERE id = ?`

	querySetResellerOwed = `
		UPDATE users SET balance_owed = ? WHERE id = ? AND role = 'revendedor'`

	queryGetResellerOwed = `
		SELECT balance_owed FROM users WHERE id = ? AND role = 'revendedor'`

	// Remittance queries
	remittanceColumns = `
		id, code, sender_name, sender_phone, beneficiary_name, beneficiary_phone,
		beneficiary_address, delivery_type, amount_sent, rate, amount_delivery,
		delivery_currency, fee_percent, fee_fixed, fee_total, total_charged,
		platform_fee, status, courier_id, created_by, reseller_id, is_request,
		notes, delivery_photo, invoiced, invoiced_at, created_at, delivered_at, approved_at`

	queryInsertRemittance = `
		INSERT INTO remittances (
			id, code, sender_name, sender_phone, beneficiary_name, beneficiary_phone,
			beneficiary_address, delivery_type, amount_sent, rate, amount_delivery,
			delivery_currency, fee_percent, fee_fixed, fee_total, total_charged,
			platform_fee, status, courier_id, created_by, reseller_id, is_request,
			notes, delivery_photo, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetRemittanceById = `
		SELECT ` + remittanceColumns + `
		FROM remittances
		WHERE id = ?`

	queryGetRemittanceByCode = `
		SELECT ` + remittanceColumns + `
		FROM remittances
		WHERE code = ?`

	queryListCourierRemittances = `
		SELECT ` + remittanceColumns + `
		FROM remittances
		WHERE courier_id = ? AND status IN (%s)
		ORDER BY created_at DESC
		LIMIT ?`

	queryListResellerRemittances = `
		SELECT ` + remittanceColumns + `
		FROM remittances
		WHERE reseller_id = ?
		ORDER BY created_at DESC`

	queryListResellerRemittancesByStatus = `
		SELECT ` + remittanceColumns + `
		FROM remittances
		WHERE reseller_id = ? AND status = ?
		ORDER BY created_at DESC`

	queryListRemittancesBySenderPhone = `
		SELECT ` + remittanceColumns + `
		FROM remittances
		WHERE sender_phone = ? AND is_request = 0
		ORDER BY created_at DESC
		LIMIT ?`

	queryListOpenRequests = `
		SELECT ` + remittanceColumns + `
		FROM remittances
		WHERE is_request = 1 AND status = 'solicitud'
		ORDER BY created_at`

	queryUpdateRemittanceStatus = `
		UPDATE remittances SET status = ? WHERE id = ?`

	queryApproveRemittance = `
		UPDATE remittances
		SET status = ?, amount_sent = ?, amount_delivery = ?, fee_total = ?, total_charged = ?,
		    beneficiary_address = ?, courier_id = ?, approved_at = ?
		WHERE id = ?`

	queryAssignRemittanceCourier = `
		UPDATE remittances SET status = 'en_proceso', courier_id = ? WHERE id = ?`

	queryMarkRemittanceDelivered = `
		UPDATE remittances
		SET status = 'entregada', delivered_at = ?, delivery_photo = ?
		WHERE id = ?`

	queryCancelRemittance = `
		UPDATE remittances SET status = 'cancelada', notes = ? WHERE id = ?`

	querySetRemittanceInvoiced = `
		UPDATE remittances SET invoiced = ?, invoiced_at = ? WHERE id = ?`

	queryPurgeRemittance = `
		DELETE FROM remittances WHERE id = ?`

	queryPurgeRemittanceJournal = `
		DELETE FROM journal_entries WHERE remittance_id = ?`

	queryPurgeRemittanceMovements = `
		DELETE FROM cash_movements WHERE remittance_id = ?`

	// Cash ledger queries
	queryGetCashBalance = `
		SELECT balance
		FROM cash_balances
		WHERE courier_id = ? AND currency = ?`

	queryGetCashBalanceForUpdate = `
		SELECT id, balance, version
		FROM cash_balances
		WHERE courier_id = ? AND currency = ?`

	queryInsertCashBalance = `
		INSERT INTO cash_balances (id, courier_id, currency, balance, version)
		VALUES (?, ?, ?, ?, ?)`

	queryUpdateCashBalance = `
		UPDATE cash_balances
		SET balance = ?, last_movement_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE courier_id = ? AND currency = ? AND version = ?`

	queryGetAllCashBalances = `
		SELECT id, courier_id, currency, balance, last_movement_id, version, updated_at
		FROM cash_balances
		WHERE courier_id = ?
		ORDER BY currency`

	queryInsertCashMovement = `
		INSERT INTO cash_movements (
			id, courier_id, currency, kind, amount, balance_before, balance_after,
			rate, remittance_id, notes, recorded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetCashMovements = `
		SELECT id, courier_id, currency, kind, amount, balance_before, balance_after,
		       rate, remittance_id, notes, recorded_by, created_at
		FROM cash_movements
		WHERE courier_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	queryGetCashTotals = `
		SELECT currency, COALESCE(SUM(CAST(balance AS REAL)), 0)
		FROM cash_balances
		GROUP BY currency`

	queryReconcileCashBalance = `
		SELECT COALESCE(SUM(CAST(amount AS REAL)), 0)
		FROM cash_movements
		WHERE courier_id = ? AND currency = ?`

	// Reseller payment queries
	queryInsertResellerPayment = `
		INSERT INTO reseller_payments (id, reseller_id, amount, method, reference, notes, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryListResellerPayments = `
		SELECT id, reseller_id, amount, method, reference, notes, recorded_by, created_at
		FROM reseller_payments
		WHERE reseller_id = ?
		ORDER BY created_at DESC`

	queryResellerPaymentTotal = `
		SELECT COALESCE(SUM(CAST(amount AS REAL)), 0)
		FROM reseller_payments
		WHERE reseller_id = ?`

	queryResellerRemittanceTotals = `
		SELECT COUNT(*), COALESCE(SUM(CAST(amount_sent AS REAL)), 0), COALESCE(SUM(CAST(platform_fee AS REAL)), 0)
		FROM remittances
		WHERE reseller_id = ? AND status != 'cancelada'`

	// Journal queries
	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, kind, concept, amount, remittance_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryListJournal = `
		SELECT id, kind, concept, amount, remittance_id, user_id, created_at
		FROM journal_entries
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at DESC`

	queryJournalTotals = `
		SELECT kind, COALESCE(SUM(CAST(amount AS REAL)), 0)
		FROM journal_entries
		WHERE created_at >= ? AND created_at < ?
		GROUP BY kind`

	// Exchange rate queries
	queryGetActiveRate = `
		SELECT rate
		FROM exchange_rates
		WHERE source_currency = ? AND active = 1
		ORDER BY updated_at DESC
		LIMIT 1`

	queryDeactivateRates = `
		UPDATE exchange_rates SET active = 0 WHERE source_currency = ? AND active = 1`

	queryInsertRate = `
		INSERT INTO exchange_rates (id, source_currency, dest_currency, rate, active, updated_at)
		VALUES (?, ?, ?, ?, 1, ?)`

	queryListRates = `
		SELECT id, source_currency, dest_currency, rate, active, updated_at
		FROM exchange_rates
		ORDER BY updated_at DESC
		LIMIT ?`

	// Fee rule queries
	queryListActiveFeeRules = `
		SELECT id, name, range_min, range_max, percent, fixed_amount, active
		FROM fee_rules
		WHERE active = 1
		ORDER BY CAST(range_min AS REAL)`

	queryListFeeRules = `
		SELECT id, name, range_min, range_max, percent, fixed_amount, active
		FROM fee_rules
		ORDER BY CAST(range_min AS REAL)`

	queryInsertFeeRule = `
		INSERT INTO fee_rules (id, name, range_min, range_max, percent, fixed_amount, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryUpdateFeeRule = `
		UPDATE fee_rules
		SET name = ?, range_min = ?, range_max = ?, percent = ?, fixed_amount = ?, active = ?
		WHERE id = ?`

	queryDeleteFeeRule = `
		DELETE FROM fee_rules WHERE id = ?`

	// Report queries
	queryPeriodTotals = `
		SELECT COUNT(*),
		       COALESCE(SUM(CAST(amount_sent AS REAL)), 0),
		       COALESCE(SUM(CAST(fee_total AS REAL)), 0),
		       COALESCE(SUM(CAST(total_charged AS REAL)), 0)
		FROM remittances
		WHERE created_at >= ? AND created_at < ? AND status != 'cancelada'`

	queryPeriodByStatus = `
		SELECT status, COUNT(*)
		FROM remittances
		WHERE created_at >= ? AND created_at < ?
		GROUP BY status`

	queryPeriodByDay = `
		SELECT DATE(created_at), COUNT(*),
		       COALESCE(SUM(CAST(amount_sent AS REAL)), 0),
		       COALESCE(SUM(CAST(fee_total AS REAL)), 0)
		FROM remittances
		WHERE created_at >= ? AND created_at < ? AND status != 'cancelada'
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at)`

	queryCourierStats = `
		SELECT r.courier_id, u.name,
		       COUNT(*),
		       SUM(CASE WHEN r.status = 'entregada' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN r.status IN ('pendiente', 'en_proceso') THEN 1 ELSE 0 END),
		       COALESCE(SUM(CASE WHEN r.status = 'entregada' THEN CAST(r.amount_delivery AS REAL) ELSE 0 END), 0)
		FROM remittances r
		JOIN users u ON u.id = r.courier_id
		WHERE r.courier_id != '' AND r.created_at >= ? AND r.created_at < ?
		GROUP BY r.courier_id, u.name
		ORDER BY u.name`

	queryDashboardCounts = `
		SELECT COUNT(*),
		       SUM(CASE WHEN status = 'pendiente' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN DATE(created_at) = DATE(?) THEN 1 ELSE 0 END),
		       SUM(CASE WHEN is_request = 1 AND status = 'solicitud' THEN 1 ELSE 0 END)
		FROM remittances`

	queryDashboardMonthFees = `
		SELECT COALESCE(SUM(CAST(fee_total AS REAL)), 0)
		FROM remittances
		WHERE created_at >= ? AND status != 'cancelada'`

	queryDashboardMovedToday = `
		SELECT COALESCE(SUM(CAST(amount_sent AS REAL)), 0)
		FROM remittances
		WHERE DATE(created_at) = DATE(?) AND status != 'cancelada'`

	queryDashboardUninvoiced = `
		SELECT COUNT(*), COALESCE(SUM(CAST(amount_sent AS REAL)), 0)
		FROM remittances
		WHERE invoiced = 0 AND status = 'entregada'`

	queryDashboardOverdue = `
		SELECT COUNT(*)
		FROM remittances
		WHERE status IN ('pendiente', 'en_proceso') AND created_at < ?`
)
