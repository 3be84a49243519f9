package domain

import (
	"fmt"
	"strings"
)

// ResponseError: ошибка валидации отдельного поля в ответе Query API.
type ResponseError struct {
	ErrorCode string            `json:"errorCode"`
	FieldName string            `json:"fieldName"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// ResponseStatus: блок ошибки, который Query API кладёт в тело ответа.
type ResponseStatus struct {
	ErrorCode  string            `json:"errorCode"`
	Message    string            `json:"message"`
	StackTrace string            `json:"stackTrace,omitempty"`
	Errors     []ResponseError   `json:"errors,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Failed сообщает, содержит ли статус ошибку.
func (s *ResponseStatus) Failed() bool {
	return s != nil && s.ErrorCode != ""
}

func (s *ResponseStatus) String() string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, len(s.Errors)+1)
	head := s.ErrorCode
	if s.Message != "" {
		head = fmt.Sprintf("%s: %s", s.ErrorCode, s.Message)
	}
	parts = append(parts, head)
	for _, fe := range s.Errors {
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.FieldName, fe.Message))
	}
	return strings.Join(parts, "; ")
}

// QueryResponse: страница результатов Query API.
type QueryResponse[T any] struct {
	Offset         int               `json:"offset"`
	Total          int               `json:"total"`
	Results        []T               `json:"results"`
	Meta           map[string]string `json:"meta,omitempty"`
	ResponseStatus *ResponseStatus   `json:"responseStatus,omitempty"`
}

// CustomerPage: страница клиентов.
type CustomerPage = QueryResponse[Customer]

// OrderPage: страница заказов.
type OrderPage = QueryResponse[Order]

// First возвращает первую запись страницы.
func (p QueryResponse[T]) First() (T, bool) {
	if len(p.Results) == 0 {
		var zero T
		return zero, false
	}
	return p.Results[0], true
}
