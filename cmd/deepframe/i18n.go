// Package main provides localization for the deepframe CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Selection": "フレーム選択",
		"Output":    "出力",
		"Decoding":  "デコード",
		"Reports":   "レポート",
		"Debug":     "デバッグ",
		"Logging":   "ログ",

		// Root command
		"Extract arbitrary frames from videos into RGB buffers and images": "動画から任意のフレームをRGBバッファや画像として抽出",
		"deepframe decodes only what is needed to pull the requested frames out of a video, seeking over large gaps.": "deepframeは要求されたフレームを取り出すのに必要な部分だけをデコードし、大きな間隔はシークで飛ばします。",

		// Extract command
		"Extract frames from one or more videos": "1つ以上の動画からフレームを抽出",
		"Decode the frames selected by --indices from every SOURCE and write them as images, raw RGB or a contact sheet.": "各SOURCEから --indices で選択したフレームをデコードし、画像・raw RGB・コンタクトシートとして書き出します。",

		// Info command
		"Show stream information of a video": "動画のストリーム情報を表示",
		"Read the container of SOURCE and print its video stream without decoding any frame.": "SOURCEのコンテナを読み取り、フレームをデコードせずに映像ストリームの情報を表示します。",
		"Output format (json or yaml)": "出力形式（json または yaml）",

		// Version command
		"Show version information":  "バージョン情報を表示",
		"deepframe version %s":      "deepframe バージョン %s",

		// Selection flags
		"Frames to extract, e.g. 5,2,2,0 or 0:100:5 or ::-10": "抽出するフレーム（例: 5,2,2,0 / 0:100:5 / ::-10）",
		"YAML configuration file (loaded when present)":        "YAML設定ファイル（存在する場合に読み込み）",

		// Output flags
		"Output directory (default: .)":                          "出力ディレクトリ（デフォルト: .）",
		"Output format: png, jpeg, raw or sheet (default: png)":  "出力形式: png, jpeg, raw, sheet（デフォルト: png）",
		"File name prefix (default: frame)":                      "ファイル名の接頭辞（デフォルト: frame）",
		"JPEG quality 1-100 (default: 90)":                       "JPEG品質 1-100（デフォルト: 90）",
		"Downscale images to this width, keeping the aspect ratio (0 = original size)": "アスペクト比を保ってこの幅に縮小（0 = 元のサイズ）",
		"Columns of the contact sheet (default: 4)":              "コンタクトシートのカラム数（デフォルト: 4）",

		// Decoding flags
		"Frame distance above which a seek is issued instead of decoding (default: 300)": "デコードの代わりにシークするフレーム間隔（デフォルト: 300）",
		"Force the decoder output pixel format (yuv420p, nv12, gray, rgb24, rgba)":       "デコーダーの出力ピクセル形式を指定（yuv420p, nv12, gray, rgb24, rgba）",
		"Path to the ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)":       "ffmpeg実行ファイルのパス（未指定時は FFMPEG_PATH 環境変数、次に PATH）",
		"Number of sources processed in parallel (default: 1)":                           "並列に処理するソース数（デフォルト: 1）",

		// Report flags
		"Write a Markdown summary to this file":               "Markdown形式のサマリーをこのファイルに出力",
		"Write Prometheus metrics in text format to this file": "Prometheusテキスト形式のメトリクスをこのファイルに出力",

		// Debug flags
		"Save plans, results and frames for inspection": "調査用にプラン・結果・フレームを保存",
		"Directory for debug output (default: ./debug)": "デバッグ出力のディレクトリ（デフォルト: ./debug）",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Error messages
		"Error: %s":                                "エラー: %s",
		"at least one SOURCE is required":          "SOURCE を1つ以上指定してください",
		"exactly one SOURCE is required":           "SOURCE を1つだけ指定してください",
		"--indices is required":                    "--indices の指定が必要です",
		"unknown output format %q (json or yaml)":  "不明な出力形式 %q（json または yaml）",
	})
}
