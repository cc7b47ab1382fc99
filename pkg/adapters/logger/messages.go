package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Extracting frames from %d sources with %d jobs":           "%d 個のソースから %d ジョブでフレームを抽出します",
		"Decoding %d frames from %s":                               "%[2]s から %[1]d フレームをデコード中",
		"Wrote %d files (%d bytes) for %s":                         "%[3]s のファイルを %[1]d 個 (%[2]d バイト) 書き出しました",
		"Finished %d sources in %d ms: %d files, %d frames missing": "%d 個のソースを %d ms で処理しました: ファイル %d 個, 欠落フレーム %d",
		"Summary written to %s":                                    "サマリーを %s に保存しました",
		"Resolved frame count of %s: %d":                           "%s のフレーム数: %d",

		// Orchestration warnings and errors
		"%d of %d frames not found in %s":  "%[3]s で %[2]d フレーム中 %[1]d フレームが見つかりません",
		"Failed to process %s: %s":         "%s の処理に失敗しました: %s",
		"Failed to write summary: %s":      "サマリーの書き込みに失敗しました: %s",
		"Failed to write metrics: %s":      "メトリクスの書き込みに失敗しました: %s",
		"Extraction interrupted: %s":       "抽出が中断されました: %s",
		"Interrupted, shutting down...":    "中断されました。シャットダウン中...",

		// Extraction loop (debug)
		"Extracting %d frames (%d distinct) from %s: %dx%d, %s fps, time base %s": "%[3]s から %[1]d フレーム (重複除き %[2]d) を抽出: %[4]dx%[5]d, %[6]s fps, タイムベース %[7]s",
		"Decoded %s: %d packets, %d frames, %d seeks":                             "%s をデコード: パケット %d, フレーム %d, シーク %d 回",
		"Matched frame %d (pts %d), %d of %d slots filled":                        "フレーム %d (pts %d) が一致, %d / %d スロット充足",
		"Frame %d is %d frames before target %d, seeking":                         "フレーム %d は目標 %[3]d の %[2]d フレーム手前のためシークします",
		"Seek to frame %d failed, decoding sequentially: %v":                      "フレーム %d へのシークに失敗したため順次デコードします: %v",
		"Frame resolution mismatch at frame %d: got %dx%d, expected %dx%d":        "フレーム %d の解像度が一致しません: %dx%d (期待値 %dx%d)",
		"Skipping frame without timestamp":                                        "タイムスタンプのないフレームをスキップします",
		"State %s -> %s":                                                          "状態 %s -> %s",
		"Ignoring state transition %s -> %s":                                      "状態遷移 %s -> %s を無視します",
		"Extraction from %s failed in state %s: %v":                               "%s の抽出が状態 %s で失敗しました: %v",
		"Decoder rejected packet (pts %d): %v":                                    "デコーダーがパケット (pts %d) を拒否しました: %v",
		"Decoding failed: %v":                                                     "デコードに失敗しました: %v",
		"Entering drain mode failed: %v":                                          "ドレインモードへの移行に失敗しました: %v",
		"Flushing decoder failed: %v":                                             "デコーダーのフラッシュに失敗しました: %v",
		"Closing codec failed: %v":                                                "コーデックのクローズに失敗しました: %v",
		"Closing container failed: %v":                                            "コンテナのクローズに失敗しました: %v",

		// MP4 engine and ffmpeg codec
		"Indexed %s: track %d, %s %dx%d, %d samples, timescale %d": "%s を解析: トラック %d, %s %dx%d, サンプル %d, タイムスケール %d",
		"Seek to %d lands on sample %d (pts %d)":                   "%d へのシークはサンプル %d (pts %d) に着地",
		"Started ffmpeg: %s %s":                                    "ffmpeg を起動: %s %s",
		"Dropping leading picture (pts %d) of keyframe %d":         "キーフレーム %[2]d の先行ピクチャ (pts %[1]d) を破棄します",

		// Export stage
		"Exported %s: %d files, %d bytes":         "%s を書き出し: ファイル %d 個, %d バイト",
		"Encoding %d frames with %d workers":      "%d フレームを %d ワーカーでエンコード中",
		"Slot %d of %s has no frame, not written": "%[2]s のスロット %[1]d にはフレームがないため書き出しません",
		"Raw output ignores scale width %d":       "raw 出力ではスケール幅 %d は無視されます",
		"Removing %s failed: %v":                  "%s の削除に失敗しました: %v",

		// Debug sink
		"Saving debug frame %d failed: %v": "デバッグフレーム %d の保存に失敗しました: %v",
	})
}
