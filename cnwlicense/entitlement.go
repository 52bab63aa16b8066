package cnwlicense

// CheckEntitlement runs the program, product, offline, role and feature
// checks in that order and stops at the first failure. An empty
// requiredRole or requiredFeature skips that check.
func CheckEntitlement(doc *LicenseDocument, requiredProgramID, requiredRole, requiredFeature string) (bool, string) {
	if doc.Program.ProgramID != requiredProgramID {
		return false, ReasonNotProgram(requiredProgramID)
	}

	product, ok := doc.Products[requiredProgramID]
	if !ok || !product.Enabled {
		return false, ReasonProgramNotEnabled(requiredProgramID)
	}
	if !product.OfflineAllowed {
		return false, ReasonOfflineNotAllowed
	}

	if requiredRole != "" && !doc.Roles.Contains(requiredRole) {
		return false, ReasonMissingRole(requiredRole)
	}
	if requiredFeature != "" && !doc.Features().Contains(requiredFeature) {
		return false, ReasonMissingFeature(requiredFeature)
	}
	return true, ReasonOK
}
