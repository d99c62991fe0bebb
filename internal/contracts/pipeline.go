package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그와 run summary에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   LOAD → BUILD → SELECT → PUBLISH
//   CSV     Curves   Roll/Premium  Sinks

// Stage represents a pipeline stage
type Stage string

const (
	// StageLoad: per-contract CSV 로딩
	// 책임: 파일 파싱, 행 정규화, malformed 행 카운트
	// 위치: internal/curve/loader.go
	StageLoad Stage = "LOAD"

	// StageBuild: 거래일별 커브 구성
	// 책임: trade date 그룹핑, 만기 정렬, 중복 만기 정책
	// 위치: internal/curve/builder.go
	StageBuild Stage = "BUILD"

	// StageSelect: 롤 선택 및 프리미엄 계산
	// 책임: near/far 선택, 7일 롤 규칙, 연환산 프리미엄
	// 위치: internal/roll/
	StageSelect Stage = "SELECT"

	// StagePublish: 결과 시리즈 배포
	// 책임: JSON 파일, Postgres, S3 sink
	// 위치: internal/output/
	StagePublish Stage = "PUBLISH"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// AllStages returns the stages in execution order
func AllStages() []Stage {
	return []Stage{StageLoad, StageBuild, StageSelect, StagePublish}
}

// RunStatus represents the outcome of a pipeline run
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)
