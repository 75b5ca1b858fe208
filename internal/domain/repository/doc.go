// Package repository define los contratos de persistencia del core de
// identidad. Las implementaciones viven en internal/store/pg (PostgreSQL)
// e internal/store/memory (tests y modo dev).
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Los drivers traducen sus errores a los sentinels de errors.go.
package repository
