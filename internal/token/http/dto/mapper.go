package dto

import (
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
)

// MapCreateOutputToResponse converts a creation/rotation result to its API response.
func MapCreateOutputToResponse(output *tokenDomain.CreateTokenOutput) CreateTokenResponse {
	token := output.Token

	response := CreateTokenResponse{
		Token:         output.PlainToken,
		ID:            token.ID.String(),
		Type:          string(token.Type),
		Status:        string(token.Status),
		IssuedAt:      token.IssuedAt,
		ExpiresAt:     token.ExpiresAt,
		Scopes:        token.Scopes,
		RotationCount: token.RotationCount,
		CorrelationID: token.CorrelationID,
	}
	if token.UserID != nil {
		userID := token.UserID.String()
		response.UserID = &userID
	}
	if token.ParentTokenID != nil {
		parentID := token.ParentTokenID.String()
		response.ParentTokenID = &parentID
	}

	return response
}

// MapSummariesToResponse converts token summaries to their listing response.
func MapSummariesToResponse(summaries []tokenDomain.Summary) ListTokensResponse {
	tokens := make([]TokenSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		tokens = append(tokens, TokenSummaryResponse{
			ID:            summary.ID.String(),
			Type:          string(summary.Type),
			Status:        string(summary.Status),
			IssuedAt:      summary.IssuedAt,
			ExpiresAt:     summary.ExpiresAt,
			LastUsedAt:    summary.LastUsedAt,
			Scopes:        summary.Scopes,
			RotationCount: summary.RotationCount,
		})
	}
	return ListTokensResponse{Tokens: tokens}
}
