// Package siri holds the SIRI-VM document model and the single XML encoder
// used by both the live and the synthetic vehicle feeds, plus the CheckStatus
// document required by BODS.
package siri
