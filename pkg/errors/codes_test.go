package errors

import (
	"net/http"
	"testing"
)

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeDuplicateJob, http.StatusConflict},
		{ErrCodeIncompleteAnalysis, http.StatusPreconditionFailed},
		{ErrCodeJobTimeout, http.StatusGatewayTimeout},
		{ErrCodeReferenceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeInvalidElement, http.StatusBadRequest},
		{ErrCodeTenantMismatch, http.StatusForbidden},
		{ErrCodeJobNotFound, http.StatusNotFound},
		{ErrorCode("BOGUS_999"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatusForCode(tt.code); got != tt.want {
			t.Errorf("HTTPStatusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestEveryPipelineCodeHasStatusAndMessage(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeReferenceUnavailable, ErrCodeInvalidElement,
		ErrCodeAnalysisUnavailable, ErrCodeIncompleteAnalysis,
		ErrCodeDuplicateJob, ErrCodeJobTimeout, ErrCodeJobNotFound,
		ErrCodeMatchNotFound, ErrCodeCombinedAnalysisNotFound,
		ErrCodeSearchSessionNotFound, ErrCodeClaimUnavailable,
		ErrCodeTenantMismatch, ErrCodeJobStateInvalid,
	}
	for _, code := range codes {
		if _, ok := ErrorCodeHTTPStatus[code]; !ok {
			t.Errorf("code %s has no HTTP status mapping", code)
		}
		if _, ok := ErrorCodeMessage[code]; !ok {
			t.Errorf("code %s has no default message", code)
		}
	}
}

func TestIsClientServerError(t *testing.T) {
	if !IsClientError(ErrCodeDuplicateJob) {
		t.Error("duplicate-job is a client error")
	}
	if IsServerError(ErrCodeDuplicateJob) {
		t.Error("duplicate-job is not a server error")
	}
	if !IsServerError(ErrCodeAnalysisUnavailable) {
		t.Error("analysis-unavailable is a server error")
	}
}

func TestModuleForCode(t *testing.T) {
	if ModuleForCode(ErrCodeDuplicateJob) != "CIT" {
		t.Errorf("ModuleForCode = %s, want CIT", ModuleForCode(ErrCodeDuplicateJob))
	}
	if ModuleForCode(ErrCodeInternal) != "COMMON" {
		t.Errorf("ModuleForCode = %s, want COMMON", ModuleForCode(ErrCodeInternal))
	}
}

//Personal.AI order the ending
